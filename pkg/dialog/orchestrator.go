// Package dialog runs the think pipeline: resolve the robot, assemble the
// instruction and history, generate a reply and kick off the after-turn side
// effects (conversation log, field extraction, CRM sync).
package dialog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kottzoltan/aivio/internal/models"
	"github.com/kottzoltan/aivio/pkg/apperr"
	"github.com/kottzoltan/aivio/pkg/constants"
	"github.com/kottzoltan/aivio/pkg/crm"
	"github.com/kottzoltan/aivio/pkg/extract"
	"github.com/kottzoltan/aivio/pkg/llm"
	"github.com/kottzoltan/aivio/pkg/logger"
	"github.com/kottzoltan/aivio/pkg/persona"
	"github.com/kottzoltan/aivio/pkg/session"
	gonanoid "github.com/matoous/go-nanoid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FallbackReply is spoken whenever generation fails or comes back empty. The
// caller always gets something to say.
const FallbackReply = "Elnézést, nem tudok most válaszolni."

const sideEffectTimeout = 15 * time.Second

// Generator produces one reply from an instruction, prior turns and the
// current user text.
type Generator interface {
	Reply(ctx context.Context, instruction string, history []llm.Message, userText string) (string, error)
}

// CRMSink receives the records extracted from finished turns.
type CRMSink interface {
	SubmitLead(ctx context.Context, personaKey string, lead crm.Lead) error
	SubmitEvent(ctx context.Context, personaKey string, event crm.CalendarEvent) error
	SubmitSurvey(ctx context.Context, personaKey string, result crm.SurveyResult) error
}

// Request is one think-call.
type Request struct {
	Text    string        `json:"text"`
	Robot   string        `json:"robot,omitempty"`
	CallID  string        `json:"callId,omitempty"`
	History []llm.Message `json:"history,omitempty"`
}

// Result is the reply plus the persona that produced it.
type Result struct {
	Text    string
	Persona persona.Persona
}

// Orchestrator wires the collaborators behind one Think entry point.
type Orchestrator struct {
	personas *persona.Registry
	sessions *session.Registry
	gen      Generator
	crm      CRMSink
	db       *gorm.DB
	window   int

	wg    sync.WaitGroup
	clock func() time.Time
}

// NewOrchestrator creates the pipeline. db and sink may be nil; the matching
// side effects are then skipped.
func NewOrchestrator(personas *persona.Registry, sessions *session.Registry, gen Generator, sink CRMSink, db *gorm.DB, historyWindow int) *Orchestrator {
	if historyWindow <= 0 {
		historyWindow = 10
	}
	return &Orchestrator{
		personas: personas,
		sessions: sessions,
		gen:      gen,
		crm:      sink,
		db:       db,
		window:   historyWindow,
		clock:    time.Now,
	}
}

// Think runs one conversational turn. Validation happens before any
// collaborator is touched. When the request names a live call session, that
// session's history feeds the generator and turns on the same session are
// serialized; otherwise the caller-supplied history is used as-is (tail only).
func (o *Orchestrator) Think(ctx context.Context, req Request) (Result, error) {
	userText := strings.TrimSpace(req.Text)
	if userText == "" {
		return Result{}, apperr.Invalidf("text is required")
	}

	robot := req.Robot
	if robot == "" {
		robot = constants.DEFAULT_PERSONA
	}
	p, err := o.personas.Resolve(robot)
	if err != nil {
		return Result{}, err
	}

	var sess *session.Session
	if req.CallID != "" {
		if s, ok := o.sessions.Get(req.CallID); ok {
			sess = s
		}
	}

	var history []llm.Message
	if sess != nil {
		sess.LockTurn()
		defer sess.UnlockTurn()
		for _, t := range sess.Window(o.window) {
			history = append(history, llm.Message{Role: t.Role, Content: t.Content})
		}
	} else {
		history = tail(req.History, o.window)
	}

	reply, err := o.gen.Reply(ctx, buildInstruction(p), history, userText)
	if err != nil {
		logger.Error("reply generation failed",
			zap.String("robot", p.Key),
			zap.String("callId", req.CallID),
			zap.Error(err))
		if sess != nil {
			sess.AppendTurn(llm.RoleUser, userText)
			sess.AppendTurn(llm.RoleAssistant, FallbackReply)
		}
		return Result{Text: FallbackReply, Persona: p}, err
	}
	if reply == "" {
		reply = FallbackReply
	}

	if sess != nil {
		sess.AppendTurn(llm.RoleUser, userText)
		sess.AppendTurn(llm.RoleAssistant, reply)
	}

	o.wg.Add(1)
	go o.afterTurn(req.CallID, p.Key, userText, reply)

	return Result{Text: reply, Persona: p}, nil
}

// Wait blocks until all in-flight side effects finish.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// buildInstruction joins the persona's prompt sections into one system
// instruction.
func buildInstruction(p persona.Persona) string {
	parts := []string{p.Instruction}
	if p.Style != "" {
		parts = append(parts, "Stílus:\n"+p.Style)
	}
	if p.Script != "" {
		parts = append(parts, "Forgatókönyv:\n"+p.Script)
	}
	if p.Knowledge != "" {
		parts = append(parts, "Tudásbázis:\n"+p.Knowledge)
	}
	return strings.Join(parts, "\n\n")
}

// afterTurn records the finished turn and routes extracted fields to the CRM.
// Failures are logged, never surfaced to the caller.
func (o *Orchestrator) afterTurn(callID, personaKey, userText, aiText string) {
	defer o.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	if o.db != nil {
		log := &models.ConversationLog{
			LogID:    gonanoid.MustID(21),
			CallID:   callID,
			Persona:  personaKey,
			UserText: userText,
			AIText:   aiText,
		}
		if err := models.CreateConversationLog(o.db, log); err != nil {
			logger.Error("failed to store conversation log",
				zap.String("robot", personaKey),
				zap.Error(apperr.Storage("conversation_log", err)))
		}
	}

	if o.crm == nil {
		return
	}

	fields := extract.Extract(userText, o.clock())
	switch personaKey {
	case constants.PERSONA_OUTBOUND_SALES, constants.PERSONA_EMAIL_SALES:
		if fields.HasContact() {
			err := o.crm.SubmitLead(ctx, personaKey, crm.Lead{
				Email: fields.Email,
				Phone: fields.Phone,
				Note:  userText,
			})
			if err != nil {
				logger.Error("lead sync failed", zap.String("robot", personaKey), zap.Error(err))
			}
		}
	case constants.PERSONA_DATA_INTAKE:
		if fields.When != nil {
			err := o.crm.SubmitEvent(ctx, personaKey, crm.CalendarEvent{
				Title:    "Egyeztetett időpont",
				StartsAt: *fields.When,
				Note:     userText,
			})
			if err != nil {
				logger.Error("event sync failed", zap.String("robot", personaKey), zap.Error(err))
			}
		}
	case constants.PERSONA_SURVEY:
		if fields.Rating > 0 {
			err := o.crm.SubmitSurvey(ctx, personaKey, crm.SurveyResult{
				Rating: fields.Rating,
				Note:   userText,
			})
			if err != nil {
				logger.Error("survey sync failed", zap.String("robot", personaKey), zap.Error(err))
			}
		}
	}
}

func tail(history []llm.Message, n int) []llm.Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
