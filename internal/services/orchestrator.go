package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/voice-caddie/internal/models"
	"github.com/stitts-dev/voice-caddie/pkg/config"
)

// CatalogProvider resolves a club catalog for a user. The storage layer
// implements it against the player_clubs table.
type CatalogProvider interface {
	CatalogForUser(userID string) (ClubCatalog, error)
}

// caddieSession bundles the per-conversation engines. The grammar and
// extractor are shared across sessions; everything stateful lives here.
type caddieSession struct {
	mu          sync.Mutex
	id          string
	userID      string
	context     *models.DialogueContext
	processor   *InputProcessor
	dialogue    *DialogueEngine
	recovery    *ErrorRecoveryEngine
	personality *Personality
	lastActive  time.Time
	ended       bool
}

// Orchestrator owns the session registry and routes each turn through
// input processing, dialogue management and recommendation.
type Orchestrator struct {
	mu        sync.RWMutex
	sessions  map[string]*caddieSession
	archived  []models.ErrorContext
	grammar   *GrammarEngine
	extractor *ConditionExtractor
	speech    SpeechProvider
	cache     *CacheService
	catalogs  CatalogProvider
	cfg       *config.Config
	logger    *logrus.Logger
}

// NewOrchestrator wires the shared engines. cache and catalogs may be
// nil; sessions then run purely in memory with the stock club table.
func NewOrchestrator(cfg *config.Config, speech SpeechProvider, cache *CacheService, catalogs CatalogProvider, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		sessions:  make(map[string]*caddieSession),
		grammar:   NewGrammarEngine(logger),
		extractor: NewConditionExtractor(logger),
		speech:    speech,
		cache:     cache,
		catalogs:  catalogs,
		cfg:       cfg,
		logger:    logger,
	}
}

// StartSession creates a new conversation and returns the opening
// greeting. userID may be empty for anonymous sessions.
func (o *Orchestrator) StartSession(userID string, profile models.UserProfile) (*models.TurnResponse, error) {
	sessionID := uuid.New().String()

	catalog := ClubCatalog(BuiltinCatalog{})
	if o.catalogs != nil {
		resolved, err := o.catalogs.CatalogForUser(userID)
		if err != nil {
			o.logger.WithError(err).WithField("user_id", userID).Warn("Falling back to stock club catalog")
		} else {
			catalog = resolved
		}
	}

	if profile.Verbosity == "" {
		profile.Verbosity = o.cfg.VerbosityLevel
	}

	personality := NewPersonality(o.cfg.PersonalityStyle, time.Now().UnixNano())
	recovery := NewErrorRecoveryEngine(o.cfg.MaxRetries, profile.Verbosity != "concise", personality, o.logger)
	recommender := NewRecommendationEngine(catalog, personality, profile.Verbosity, o.logger)
	dialogue := NewDialogueEngine(recommender, recovery, o.grammar, personality, o.cfg.MaxRetries, o.cfg.RequireConfirmation, o.logger)
	processor := NewInputProcessor(o.grammar, o.extractor, o.cfg.ConfidenceThreshold, o.cfg.EnableContextualUnderstanding, o.logger)

	session := &caddieSession{
		id:          sessionID,
		userID:      userID,
		context:     models.NewDialogueContext(sessionID, profile),
		processor:   processor,
		dialogue:    dialogue,
		recovery:    recovery,
		personality: personality,
		lastActive:  time.Now(),
	}

	o.mu.Lock()
	o.sessions[sessionID] = session
	o.mu.Unlock()

	greeting := personality.Apply("Hi, I'm your caddie. Tell me about your shot, starting with the distance.")
	o.snapshot(session)

	o.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"user_id":    userID,
	}).Info("Started caddie session")

	return &models.TurnResponse{
		SessionID:     sessionID,
		SpokenText:    greeting,
		State:         models.StateGreeting,
		NeedsInput:    true,
		ExpectedInput: []string{"distance", "conditions"},
	}, nil
}

// ProcessTextInput runs one turn of the conversation. The session's
// context is replaced atomically; a turn that errors leaves it
// untouched.
func (o *Orchestrator) ProcessTextInput(sessionID, text string) (*models.TurnResponse, error) {
	session, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	return o.processTextLocked(session, sessionID, text)
}

// processTextLocked runs one text turn. The caller holds session.mu,
// which keeps every phase of a turn serialized per session.
func (o *Orchestrator) processTextLocked(session *caddieSession, sessionID, text string) (*models.TurnResponse, error) {
	if session.ended {
		return nil, fmt.Errorf("session %s has ended", sessionID)
	}

	working := session.context.Clone()
	previousState := working.CurrentState
	input := session.processor.Process(text)
	resp, err := session.dialogue.ProcessTurn(working, input)
	if err != nil {
		return nil, fmt.Errorf("dialogue turn failed: %w", err)
	}

	session.context = working
	session.lastActive = time.Now()
	if working.CurrentState != previousState {
		session.processor.ResetAttempts()
	}
	if strings.Contains(input.Intent, models.IntentStartOver) {
		session.processor.Reset()
	}
	if resp.EndOfSession {
		session.ended = true
	}

	o.snapshot(session)
	if o.cache != nil {
		if err := o.cache.AppendTranscript(sessionID, text, resp.Message); err != nil {
			o.logger.WithError(err).WithField("session_id", sessionID).Debug("Transcript append skipped")
		}
		if resp.Recommendation != nil {
			if err := o.cache.SaveLastRecommendation(sessionID, resp.Recommendation); err != nil {
				o.logger.WithError(err).WithField("session_id", sessionID).Debug("Recommendation cache skipped")
			}
		}
	}

	return &models.TurnResponse{
		SessionID:      sessionID,
		SpokenText:     resp.Message,
		Recommendation: resp.Recommendation,
		State:          working.CurrentState,
		NeedsInput:     !resp.EndOfSession,
		ExpectedInput:  resp.ExpectedResponse,
		Confidence:     input.Confidence,
	}, nil
}

// ProcessVoiceInput transcribes audio and runs the transcript through
// the text path. Recognition failures and low-confidence transcripts
// are answered with a recovery prompt instead of a turn. The session
// lock is held for the whole turn, recognition included, so at most one
// speech-provider call is outstanding per session at a time.
func (o *Orchestrator) ProcessVoiceInput(ctx context.Context, sessionID string, audio []byte, format string) (*models.TurnResponse, error) {
	session, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.ended {
		return nil, fmt.Errorf("session %s has ended", sessionID)
	}

	result, recErr := o.speech.Recognize(ctx, audio, format)
	if recErr != nil || result.Confidence < o.cfg.ConfidenceThreshold {
		raw := ""
		confidence := 0.0
		if result != nil {
			raw = result.Transcript
			confidence = result.Confidence
		}
		recovery := session.recovery.HandleError(models.ErrorContext{
			Kind:          models.ErrSpeechRecognition,
			OriginalInput: raw,
			AttemptNumber: session.context.AttemptCount + 1,
			Confidence:    confidence,
		})
		session.lastActive = time.Now()
		return &models.TurnResponse{
			SessionID:     sessionID,
			SpokenText:    recovery.Message,
			State:         session.context.CurrentState,
			NeedsInput:    true,
			ExpectedInput: recovery.Suggestions,
			Confidence:    confidence,
		}, nil
	}

	o.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"confidence": result.Confidence,
	}).Debug("Recognized voice input")

	return o.processTextLocked(session, sessionID, result.Transcript)
}

// ResetSession reverts a session to a fresh greeting while keeping its
// identity and profile. The error history survives for statistics.
func (o *Orchestrator) ResetSession(sessionID string) (*models.TurnResponse, error) {
	session, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	profile := session.context.Profile
	session.context = models.NewDialogueContext(sessionID, profile)
	session.processor.Reset()
	session.ended = false
	session.lastActive = time.Now()
	o.snapshot(session)

	greeting := session.personality.Apply("Okay, clean slate. Tell me about your shot.")
	return &models.TurnResponse{
		SessionID:     sessionID,
		SpokenText:    greeting,
		State:         models.StateGreeting,
		NeedsInput:    true,
		ExpectedInput: []string{"distance", "conditions"},
	}, nil
}

// EndSession removes a session and its cached artifacts
func (o *Orchestrator) EndSession(sessionID string) error {
	o.mu.Lock()
	session, ok := o.sessions[sessionID]
	if ok {
		delete(o.sessions, sessionID)
		o.archive(session.recovery.History())
	}
	o.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	if o.cache != nil {
		if err := o.cache.DeleteSession(sessionID); err != nil {
			o.logger.WithError(err).WithField("session_id", sessionID).Debug("Session cache cleanup skipped")
		}
	}
	o.logger.WithField("session_id", sessionID).Info("Ended caddie session")
	return nil
}

// SessionContext returns a deep copy of a session's dialogue context
func (o *Orchestrator) SessionContext(sessionID string) (*models.DialogueContext, error) {
	session, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.context.Clone(), nil
}

// SessionCount reports the number of live sessions
func (o *Orchestrator) SessionCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.sessions)
}

// ErrorStatistics merges the error history of live and ended sessions
func (o *Orchestrator) ErrorStatistics() models.ErrorStatistics {
	o.mu.RLock()
	merged := append([]models.ErrorContext(nil), o.archived...)
	for _, session := range o.sessions {
		merged = append(merged, session.recovery.History()...)
	}
	o.mu.RUnlock()

	stats := ComputeErrorStatistics(merged)
	if o.cache != nil {
		if err := o.cache.SaveErrorStatistics(&stats); err != nil {
			o.logger.WithError(err).Debug("Error statistics cache skipped")
		}
	}
	return stats
}

// ReapIdleSessions drops sessions idle past the configured timeout and
// returns how many were removed. The cron scheduler calls this.
func (o *Orchestrator) ReapIdleSessions() int {
	cutoff := time.Now().Add(-o.cfg.SessionIdleTimeout)

	o.mu.Lock()
	var expired []string
	for id, session := range o.sessions {
		session.mu.Lock()
		idle := session.lastActive.Before(cutoff)
		session.mu.Unlock()
		if idle {
			expired = append(expired, id)
			o.archive(session.recovery.History())
			delete(o.sessions, id)
		}
	}
	o.mu.Unlock()

	for _, id := range expired {
		if o.cache != nil {
			if err := o.cache.DeleteSession(id); err != nil {
				o.logger.WithError(err).WithField("session_id", id).Debug("Session cache cleanup skipped")
			}
		}
		o.logger.WithField("session_id", id).Info("Reaped idle caddie session")
	}
	return len(expired)
}

func (o *Orchestrator) lookup(sessionID string) (*caddieSession, error) {
	o.mu.RLock()
	session, ok := o.sessions[sessionID]
	o.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	return session, nil
}

// archive keeps ended sessions' errors available for statistics,
// bounded the same way per-session history is.
func (o *Orchestrator) archive(history []models.ErrorContext) {
	o.archived = append(o.archived, history...)
	if len(o.archived) > maxErrorHistory*10 {
		o.archived = o.archived[len(o.archived)-maxErrorHistory*10:]
	}
}

// snapshot mirrors the context to redis when a cache is configured
func (o *Orchestrator) snapshot(session *caddieSession) {
	if o.cache == nil {
		return
	}
	if err := o.cache.SaveSessionContext(session.id, session.context); err != nil {
		o.logger.WithError(err).WithField("session_id", session.id).Debug("Context snapshot skipped")
	}
}
