package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/nizami/nizami-backend/internal/audit"
)

// outcome is a step's contribution to the state. apply runs on the driver
// goroutine; handlers only read the state.
type outcome struct {
	branch Branch
	apply  func(*State)
	output any
}

type handler func(ctx context.Context, st *State) (outcome, error)

type node struct {
	run handler
	// fallback supplies a safe default when run fails. Terminal steps have
	// none and fail the turn instead.
	fallback func(st *State) outcome
	input    func(st *State) any
}

type edge struct {
	from   Step
	branch Branch
}

// graph is the static turn topology
type graph struct {
	nodes map[Step]node
	edges map[edge]Step
	// parallel lists steps run concurrently after a step completes and
	// before its outgoing edge is followed
	parallel map[Step][]Step
}

func (e *Engine) buildGraph() *graph {
	g := &graph{
		nodes: map[Step]node{
			StepFirstOrCreateMessage: {run: e.firstOrCreateMessage, input: func(st *State) any {
				return map[string]any{"uuid": st.UUID, "input": st.Input}
			}},
			StepValidateInputQuality: {run: e.validateInputQuality, fallback: func(*State) outcome {
				return outcome{branch: BranchValid}
			}},
			StepHandleGibberishInput: {run: e.handleGibberishInput},
			StepHasAnswer: {run: e.hasAnswer, fallback: func(*State) outcome {
				return outcome{branch: BranchNo}
			}},
			StepReturnFirstChild: {run: e.returnFirstChild},
			StepRetrieveHistory: {run: e.retrieveHistory, fallback: func(*State) outcome {
				return outcome{}
			}},
			StepCheckInputRelevance: {run: e.checkInputRelevance, fallback: func(*State) outcome {
				related := false
				return outcome{branch: BranchNewTopic, apply: func(st *State) { st.Related = &related }}
			}},
			StepHandleRelatedInput: {run: e.handleRelatedInput},
			StepRouter: {run: e.router, input: func(st *State) any {
				return map[string]any{"input": st.Input}
			}, fallback: func(*State) outcome {
				return outcome{
					branch: Branch(DecisionLegalQuestion),
					apply:  func(st *State) { st.Decision = DecisionLegalQuestion },
					output: map[string]any{"decision": DecisionLegalQuestion},
				}
			}},
			StepLegalQuestionFlow: {run: e.legalQuestionFlow},
			StepTranslateUserInput: {run: e.translateUserInput, fallback: func(*State) outcome {
				return outcome{}
			}},
			StepRephraseUserInput: {run: e.rephraseUserInput, fallback: func(st *State) outcome {
				query := st.Input
				return outcome{apply: func(st *State) { st.Query = query }}
			}},
			StepAnswerLegalQuestion: {run: e.answerLegalQuestion, input: func(st *State) any {
				return map[string]any{"input": st.Query, "translated_input": st.InputTranslation}
			}},
			StepExtractUsedLanguages: {run: e.extractUsedLanguages, fallback: func(*State) outcome {
				return outcome{}
			}},
			StepDecodeResponseJSON: {run: e.decodeResponseJSON},
			StepCalculateDisclaimer: {run: e.calculateDisclaimer, fallback: func(*State) outcome {
				return outcome{apply: func(st *State) { st.ShowDisclaimer = false }}
			}},
			StepStoreSystemMessage:       {run: e.storeSystemMessage},
			StepTranslatePreviousMessage: {run: e.translatePreviousMessage},
			StepStoreTranslationMessage:  {run: e.storeTranslationMessage},
		},
		edges: map[edge]Step{
			{StepFirstOrCreateMessage, BranchNext}: StepValidateInputQuality,

			{StepValidateInputQuality, BranchGibberish}: StepHandleGibberishInput,
			{StepValidateInputQuality, BranchValid}:     StepHasAnswer,
			{StepHandleGibberishInput, BranchNext}:      StepEnd,

			{StepHasAnswer, BranchYes}:            StepReturnFirstChild,
			{StepHasAnswer, BranchNo}:             StepRetrieveHistory,
			{StepReturnFirstChild, BranchNext}:    StepEnd,
			{StepRetrieveHistory, BranchNext}:     StepCheckInputRelevance,
			{StepCheckInputRelevance, BranchRelated}:  StepHandleRelatedInput,
			{StepCheckInputRelevance, BranchNewTopic}: StepRouter,
			{StepHandleRelatedInput, BranchNext}:      StepEnd,

			{StepRouter, Branch(DecisionLegalQuestion)}: StepLegalQuestionFlow,
			{StepRouter, Branch(DecisionOther)}:         StepLegalQuestionFlow,
			{StepRouter, Branch(DecisionTranslation)}:   StepTranslatePreviousMessage,

			{StepLegalQuestionFlow, BranchNext}:   StepAnswerLegalQuestion,
			{StepAnswerLegalQuestion, BranchNext}: StepCalculateDisclaimer,
			{StepCalculateDisclaimer, BranchNext}: StepStoreSystemMessage,
			{StepStoreSystemMessage, BranchNext}:  StepEnd,

			{StepTranslatePreviousMessage, BranchNext}: StepStoreTranslationMessage,
			{StepStoreTranslationMessage, BranchNext}:  StepEnd,
		},
		parallel: map[Step][]Step{
			StepLegalQuestionFlow:   {StepTranslateUserInput, StepRephraseUserInput},
			StepAnswerLegalQuestion: {StepExtractUsedLanguages, StepDecodeResponseJSON},
		},
	}
	return g
}

func (g *graph) next(from Step, branch Branch) (Step, error) {
	to, ok := g.edges[edge{from, branch}]
	if !ok {
		return "", fmt.Errorf("no edge from %s on branch %q", from, branch)
	}
	return to, nil
}

// run drives st from the initial step to StepEnd
func (e *Engine) run(ctx context.Context, st *State, observers []Observer) error {
	step := StepFirstOrCreateMessage
	for step != StepEnd {
		out, err := e.execute(ctx, step, st, observers, true)
		if err != nil {
			return err
		}

		if children, ok := e.graph.parallel[step]; ok {
			if err := e.fanOut(ctx, children, st, observers); err != nil {
				return err
			}
		}

		step, err = e.graph.next(step, out.branch)
		if err != nil {
			return err
		}
	}
	return nil
}

// fanOut runs independent steps concurrently and applies their outcomes
// in declaration order
func (e *Engine) fanOut(ctx context.Context, steps []Step, st *State, observers []Observer) error {
	outcomes := make([]outcome, len(steps))
	g, gctx := errgroup.WithContext(ctx)
	for i, step := range steps {
		g.Go(func() error {
			out, err := e.execute(gctx, step, st, observers, false)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, out := range outcomes {
		if out.apply != nil {
			out.apply(st)
		}
	}
	return nil
}

// execute runs one step with telemetry, metrics and the step's safe default.
// With apply set the outcome is applied to st before telemetry is written,
// so a step that creates the user message is logged against it.
func (e *Engine) execute(ctx context.Context, step Step, st *State, observers []Observer, apply bool) (outcome, error) {
	n, ok := e.graph.nodes[step]
	if !ok {
		return outcome{}, fmt.Errorf("unknown step %s", step)
	}

	var input any
	if n.input != nil {
		input = n.input(st)
	}

	start := time.Now()
	out, err := n.run(ctx, st)
	duration := time.Since(start)

	stepDuration.WithLabelValues(string(step)).Observe(duration.Seconds())

	failed := err != nil
	if failed {
		stepErrors.WithLabelValues(string(step)).Inc()
		e.logger.WithError(err).WithFields(logrus.Fields{
			"step":       step,
			"message_id": st.messageID(),
			"chat_id":    st.ChatID,
		}).Error("Pipeline step failed")

		if n.fallback == nil {
			e.record(ctx, step, st, input, map[string]any{"error": err.Error()}, duration, true)
			e.notify(observers, Event{Step: step, Duration: duration, Err: err, MessageID: st.messageID()})
			return outcome{}, fmt.Errorf("%s: %w", step, err)
		}
		out = n.fallback(st)
	}

	if apply && out.apply != nil {
		out.apply(st)
	}

	e.record(ctx, step, st, input, out.output, duration, failed)
	e.notify(observers, Event{Step: step, Branch: out.branch, Duration: duration, Err: err, MessageID: st.messageID()})
	return out, nil
}

func (e *Engine) record(ctx context.Context, step Step, st *State, input, output any, d time.Duration, failed bool) {
	if e.steps == nil {
		return
	}
	e.steps.Record(ctx, audit.StepEvent{
		MessageID: st.messageID(),
		Step:      string(step),
		Input:     input,
		Output:    output,
		Duration:  d,
		Failed:    failed,
	})
}

func (e *Engine) notify(observers []Observer, ev Event) {
	for _, o := range observers {
		o(ev)
	}
}
