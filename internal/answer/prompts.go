package answer

// rewritePrompt asks the model to resolve pronouns in a question against a
// single target speaker so the semantic search query is self-contained.
const rewritePrompt = `You are a Search Optimization Agent.
Original Question: "%s"
Target Person: %s

The original question might be vague (e.g., "Where did he go?").
Task: Rewrite the question to be self-contained and explicit for a semantic search engine.
1. Replace pronouns (he/she/you) with the Target Person's name: %s.
2. Keep the intent of the question strictly unchanged.
3. Output ONLY the rewritten question string.

Rewritten Query:`

// answerPromptConcise is the default answer template. The three evidence
// blocks appear in fixed order (full transcript, raw-store retrieval,
// fact-store retrieval) followed by the question.
const answerPromptConcise = `You are a direct QA system answering questions about a long conversation between two people.

Full Conversation History:
%s

Retrieved Raw Memories:
%s

Retrieved Fact Memories:
%s

Question: %s

Rules:
1. Resolve dates and times using the timestamps attached to the evidence above.
2. Output ONLY the answer. No explanations, no complete sentences, no "The answer is...".
3. If the answer is a person, output the name. If a date, output the date. If a place, output the place.

Answer:`

// answerPromptDetailed is selected for categories whose gold answers are
// list-style or multi-part; it permits enumerations but still forbids prose.
const answerPromptDetailed = `You are a direct QA system answering questions about a long conversation between two people.

Full Conversation History:
%s

Retrieved Raw Memories:
%s

Retrieved Fact Memories:
%s

Question: %s

Rules:
1. Resolve dates and times using the timestamps attached to the evidence above.
2. The answer may be a list; output the items separated by commas, nothing else.
3. No explanations, no complete sentences, no "The answer is...".

Answer:`

// Output token budgets per template.
const (
	maxTokensConcise  = 96
	maxTokensDetailed = 160
)

// detailedCategory is the benchmark category whose questions expect
// list-style/multi-part answers and therefore get the longer budget.
const detailedCategory = "3"
