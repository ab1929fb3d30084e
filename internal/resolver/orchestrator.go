// Package resolver drives an utterance through the layered resolution
// pipeline: embedding match first, pattern triggers on fall-through, then a
// session follow-up check, and finally the external knowledge service. Every
// resolved intent passes the authorization gate before any data is fetched.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "aletabank-assistant/internal/common/errors"
	"aletabank-assistant/internal/common/logger"
	"aletabank-assistant/internal/common/metrics"

	"aletabank-assistant/internal/bankdata"
	"aletabank-assistant/internal/catalog"
	"aletabank-assistant/internal/fallback"
	"aletabank-assistant/internal/formatter"
	"aletabank-assistant/internal/models"
	"aletabank-assistant/internal/nlu/embedmatch"
	"aletabank-assistant/internal/nlu/patternmatch"
	"aletabank-assistant/internal/nlu/slots"
	"aletabank-assistant/internal/session"
)

const defaultRangeDays = 30

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Catalog  *catalog.Catalog
	Embed    *embedmatch.Matcher
	Pattern  *patternmatch.Matcher
	Slots    *slots.Extractor
	Data     bankdata.Reader
	External fallback.Client
	Sessions session.Store
	Format   *formatter.Formatter
	Log      logger.Logger
}

type Orchestrator struct {
	deps Deps
	now  func() time.Time
}

func New(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps, now: time.Now}
}

// HandleMessage resolves one utterance end to end and returns the reply to
// speak back. It never returns an error for user-caused conditions; those
// become reply text. An error here means the reply itself could not be
// produced.
func (o *Orchestrator) HandleMessage(ctx context.Context, uctx models.UtteranceContext) (*models.Reply, error) {
	start := o.now()
	log := o.deps.Log.With(map[string]interface{}{
		"requestId": uctx.RequestID,
		"sessionId": uctx.SessionID,
		"userId":    uctx.Identity.UserID,
	})

	if uctx.PreviousIntent == "" && uctx.SessionID != "" {
		prev, err := o.deps.Sessions.LastIntent(ctx, uctx.SessionID)
		if err != nil {
			log.WithError(err).Warn("Could not read conversation context", nil)
		} else {
			uctx.PreviousIntent = prev
		}
	}

	res := o.resolveIntent(uctx, log)

	if !res.Resolved() {
		reply := o.handleDeferred(ctx, uctx, log)
		metrics.ResolutionsTotal.WithLabelValues(string(models.SourceExternal), "none").Inc()
		metrics.ResolutionDuration.WithLabelValues("deferred").Observe(time.Since(start).Seconds())
		return reply, nil
	}

	def, ok := o.deps.Catalog.Lookup(res.IntentID)
	if !ok {
		return nil, fmt.Errorf("resolved unknown intent %q", res.IntentID)
	}

	if !authorized(def, uctx.Identity) {
		denialErr := apperrors.NewAuthorizationDeniedError(def.ID, uctx.Identity.UserID)
		log.WithError(denialErr).Warn("Authorization denied", map[string]interface{}{
			"intent":   def.ID,
			"role":     string(uctx.Identity.Role),
			"familyId": uctx.Identity.FamilyID,
		})
		metrics.AuthorizationDenials.WithLabelValues(def.ID).Inc()
		metrics.ResolutionDuration.WithLabelValues("denied").Observe(time.Since(start).Seconds())
		return &models.Reply{
			RequestID: uctx.RequestID,
			SessionID: uctx.SessionID,
			IntentID:  def.ID,
			Source:    res.Source,
			Text:      formatter.DenialText,
			Denied:    true,
		}, nil
	}

	values, missing := o.deps.Slots.Extract(def, uctx.Text)
	res.Slots = values
	res.MissingSlots = o.applySlotDefaults(def, &res, missing, log)

	if len(res.MissingSlots) > 0 {
		metrics.ResolutionDuration.WithLabelValues("clarification").Observe(time.Since(start).Seconds())
		return &models.Reply{
			RequestID: uctx.RequestID,
			SessionID: uctx.SessionID,
			IntentID:  def.ID,
			Source:    res.Source,
			Text:      clarificationText(res.MissingSlots[0]),
		}, nil
	}

	data, err := o.fetchData(ctx, def, res, uctx)
	if err != nil {
		log.WithError(err).Error("Data fetch failed", map[string]interface{}{"intent": def.ID})
		metrics.ResolutionDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return &models.Reply{
			RequestID: uctx.RequestID,
			SessionID: uctx.SessionID,
			IntentID:  def.ID,
			Source:    res.Source,
			Text:      formatter.UnavailableText,
		}, nil
	}

	text := o.deps.Format.Format(res, data)

	if err := o.deps.Sessions.SetLastIntent(ctx, uctx.SessionID, def.ID); err != nil {
		// context loss only degrades follow-ups, never the current reply
		log.WithError(err).Warn("Failed to persist conversation context", nil)
	}

	log.Info("Utterance resolved", map[string]interface{}{
		"intent":     def.ID,
		"source":     string(res.Source),
		"confidence": res.Confidence,
	})
	metrics.ResolutionsTotal.WithLabelValues(string(res.Source), def.ID).Inc()
	metrics.ResolutionDuration.WithLabelValues("resolved").Observe(time.Since(start).Seconds())

	return &models.Reply{
		RequestID: uctx.RequestID,
		SessionID: uctx.SessionID,
		IntentID:  def.ID,
		Source:    res.Source,
		Text:      text,
	}, nil
}

// resolveIntent walks the state machine until a terminal state. Layer
// failures degrade to the next layer, never abort.
func (o *Orchestrator) resolveIntent(uctx models.UtteranceContext, log logger.Logger) models.ResolutionResult {
	res := models.ResolutionResult{Source: models.SourceNone}

	state := Next(StateStart, false)
	for !Terminal(state) {
		matched := false
		switch state {
		case StateEmbeddingTry:
			id, conf, err := o.deps.Embed.Match(uctx.Text)
			if err != nil {
				log.WithError(err).Warn("Embedding layer degraded", nil)
			} else if id != "" {
				res = models.ResolutionResult{IntentID: id, Confidence: conf, Source: models.SourceEmbedding}
				matched = true
			} else {
				log.Debug("Embedding under threshold", map[string]interface{}{
					"bestScore": conf,
					"threshold": o.deps.Embed.Threshold(),
				})
			}
		case StatePatternTry:
			if id := o.deps.Pattern.Match(uctx.Text); id != "" {
				res = models.ResolutionResult{IntentID: id, Source: models.SourcePattern}
				matched = true
			}
		case StateFollowUpTry:
			if id := o.followUpIntent(uctx); id != "" {
				res = models.ResolutionResult{IntentID: id, Source: models.SourceFollowUp}
				matched = true
			}
		case StateExternalFallback:
			// handled by the caller once the machine lands in StateDeferred
		}
		state = Next(state, matched)
	}

	return res
}

// followUpIntent reuses the session's previous intent when the new utterance
// is only a refinement, for example a bare date range after a transaction
// query.
func (o *Orchestrator) followUpIntent(uctx models.UtteranceContext) string {
	if uctx.PreviousIntent == "" {
		return ""
	}
	def, ok := o.deps.Catalog.Lookup(uctx.PreviousIntent)
	if !ok {
		return ""
	}
	values, _ := o.deps.Slots.Extract(def, uctx.Text)
	for _, v := range values {
		if refinesIntent(def, v.Kind) {
			return def.ID
		}
	}
	return ""
}

// refinesIntent reports whether a slot kind narrows the given intent's data
// fetch. A stray number in an unrelated utterance parses as an amount, and no
// fetch consumes amounts, so it must not re-trigger the previous query.
func refinesIntent(def *catalog.IntentDefinition, kind models.SlotKind) bool {
	for _, k := range def.RequiredSlots {
		if k == kind {
			return true
		}
	}
	return kind == models.SlotKindCategory && def.ID == "transaction_history"
}

// handleDeferred sends the unresolvable utterance to the external knowledge
// service and degrades to a generic apology on any failure.
func (o *Orchestrator) handleDeferred(ctx context.Context, uctx models.UtteranceContext, log logger.Logger) *models.Reply {
	started := o.now()
	answer, err := o.deps.External.Ask(ctx, uctx.Text, "general banking")
	metrics.FallbackDuration.Observe(time.Since(started).Seconds())

	text := answer
	if err != nil {
		kind := "error"
		if errors.Is(err, apperrors.ErrFallbackTimeout) {
			kind = "timeout"
		}
		metrics.FallbackFailures.WithLabelValues(kind).Inc()
		log.WithError(err).Warn("External fallback failed", map[string]interface{}{"kind": kind})
		text = formatter.UnavailableText
	}

	return &models.Reply{
		RequestID: uctx.RequestID,
		SessionID: uctx.SessionID,
		Source:    models.SourceExternal,
		Text:      text,
	}
}

// authorized applies the intent's authorization class to the verified
// identity. Self-account intents are always permitted because every data
// query is scoped to the requester's own records.
func authorized(def *catalog.IntentDefinition, id models.Identity) bool {
	switch def.Authorization {
	case catalog.AuthzPublic, catalog.AuthzSelfAccount:
		return true
	case catalog.AuthzSharedFamily:
		return id.IsParent()
	default:
		return false
	}
}

// applySlotDefaults fills defaultable missing slots and returns what is
// still missing. A missing date range defaults to the last 30 days; a
// missing account type means all accounts.
func (o *Orchestrator) applySlotDefaults(def *catalog.IntentDefinition, res *models.ResolutionResult, missing []string, log logger.Logger) []string {
	var remaining []string
	for _, name := range missing {
		metrics.SlotsMissing.WithLabelValues(def.ID, name).Inc()
		switch def.RequiredSlots[name] {
		case models.SlotKindDateRange:
			now := o.now()
			if res.Slots == nil {
				res.Slots = make(map[string]models.SlotValue)
			}
			res.Slots[name] = models.DateRangeValue(now.AddDate(0, 0, -defaultRangeDays), now)
			log.Debug("Defaulted date range", map[string]interface{}{"intent": def.ID, "slot": name})
		case models.SlotKindAccountType:
			// no slot means no type filter
		default:
			remaining = append(remaining, name)
		}
	}
	return remaining
}

func clarificationText(slot string) string {
	return fmt.Sprintf("Could you tell me the %s for that?", strings.ReplaceAll(slot, "_", " "))
}

// fetchData runs the data queries the resolved intent needs. All reads are
// scoped to the requester; the shared mortgage is the only family-level
// record and is reached only after the authorization gate.
func (o *Orchestrator) fetchData(ctx context.Context, def *catalog.IntentDefinition, res models.ResolutionResult, uctx models.UtteranceContext) (models.FetchedData, error) {
	var data models.FetchedData

	if def.ExternalKnowledge {
		answer, err := o.askExternal(ctx, uctx.Text)
		if err != nil {
			return data, err
		}
		data.ExternalAnswer = answer
		return data, nil
	}

	switch def.ID {
	case "account_balance", "interest_rates", "account_details":
		accounts, err := o.deps.Data.AccountsByOwner(ctx, uctx.Identity.UserID, accountTypeFilter(res))
		if err != nil {
			return data, err
		}
		data.Accounts = accounts
	case "transaction_history":
		dr := res.Slots["date_range"].DateRange
		category := res.Slots["category"].Category
		txs, err := o.deps.Data.Transactions(ctx, uctx.Identity.UserID, dr, category)
		if err != nil {
			return data, err
		}
		data.Transactions = txs
	case "spending_analysis":
		dr := res.Slots["date_range"].DateRange
		spending, err := o.deps.Data.SpendingByCategory(ctx, uctx.Identity.UserID, dr)
		if err != nil {
			return data, err
		}
		data.Spending = spending
	case "scheduled_payments":
		payments, err := o.deps.Data.ScheduledPayments(ctx, uctx.Identity.UserID)
		if err != nil {
			return data, err
		}
		data.Payments = payments
	case "shared_mortgage_balance":
		mortgage, err := o.deps.Data.SharedMortgage(ctx, uctx.Identity.FamilyID)
		if err != nil {
			return data, err
		}
		data.Mortgage = mortgage
	default:
		return data, fmt.Errorf("intent %q has no data binding", def.ID)
	}
	return data, nil
}

// askExternal serves advisory intents. Utterances about current markets get
// the snapshot endpoint; everything else goes through the question endpoint.
func (o *Orchestrator) askExternal(ctx context.Context, text string) (string, error) {
	started := o.now()
	defer func() {
		metrics.FallbackDuration.Observe(time.Since(started).Seconds())
	}()

	if strings.Contains(strings.ToLower(text), "market") {
		return o.deps.External.MarketSnapshot(ctx)
	}
	return o.deps.External.Ask(ctx, text, "investing")
}

// accountTypeFilter expands the account-type slot into concrete stored
// types. Generic savings covers the whole savings family.
func accountTypeFilter(res models.ResolutionResult) []models.AccountType {
	val, ok := res.Slots["account_type"]
	if !ok {
		return nil
	}
	if val.AccountType == models.AccountTypeSavingsAll {
		return models.SavingsTypes
	}
	return []models.AccountType{val.AccountType}
}
