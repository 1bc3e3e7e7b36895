package pipeline

// Step names a node of the turn graph. The names double as telemetry step
// names.
type Step string

const (
	StepFirstOrCreateMessage     Step = "first_or_create_message"
	StepValidateInputQuality     Step = "validate_input_quality"
	StepHandleGibberishInput     Step = "handle_gibberish_input"
	StepHasAnswer                Step = "has_answer"
	StepReturnFirstChild         Step = "return_first_child"
	StepRetrieveHistory          Step = "retrieve_history"
	StepCheckInputRelevance      Step = "check_input_relevance"
	StepHandleRelatedInput       Step = "handle_related_input"
	StepRouter                   Step = "router"
	StepLegalQuestionFlow        Step = "legal_question_flow"
	StepTranslateUserInput       Step = "translate_user_input"
	StepRephraseUserInput        Step = "rephrase_user_input"
	StepAnswerLegalQuestion      Step = "answer_legal_question"
	StepExtractUsedLanguages     Step = "extract_used_languages"
	StepDecodeResponseJSON       Step = "decode_response_json"
	StepCalculateDisclaimer      Step = "calculate_disclaimer"
	StepStoreSystemMessage       Step = "store_system_message"
	StepTranslatePreviousMessage Step = "translate_previous_message"
	StepStoreTranslationMessage  Step = "store_translation_message"

	// StepEnd terminates the turn
	StepEnd Step = "__end__"
)

// Branch selects the outgoing edge of a step. Steps with a single outgoing
// edge return BranchNext.
type Branch string

const (
	BranchNext Branch = ""

	BranchGibberish Branch = "gibberish"
	BranchValid     Branch = "valid"

	BranchYes Branch = "yes"
	BranchNo  Branch = "no"

	BranchRelated  Branch = "related"
	BranchNewTopic Branch = "new_topic"
)

// Decision is the router's classification of the input
type Decision string

const (
	DecisionLegalQuestion Decision = "legal_question"
	DecisionTranslation   Decision = "translation"
	DecisionOther         Decision = "other"
)

// Valid reports whether d is one of the router's categories
func (d Decision) Valid() bool {
	switch d {
	case DecisionLegalQuestion, DecisionTranslation, DecisionOther:
		return true
	}
	return false
}
