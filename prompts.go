package main

// PromptPair is one round's worth of questions: everyone gets Normal except
// the imposter, who gets Imposter.
type PromptPair struct {
	Normal   string
	Imposter string
}

// The prompt catalog is static for now, but could be swapped for a content
// service without touching the round logic.
var promptCatalog = []PromptPair{
	{
		Normal:   "What's your favorite color?",
		Imposter: "What's your least favorite color?",
	},
	{
		Normal:   "What's your dream vacation destination?",
		Imposter: "What's your worst vacation experience?",
	},
	{
		Normal:   "What's your favorite food?",
		Imposter: "What's your least favorite food?",
	},
	{
		Normal:   "What's your ideal weekend activity?",
		Imposter: "What's your worst weekend experience?",
	},
	{
		Normal:   "What's your favorite season?",
		Imposter: "What's your least favorite season?",
	},
}

// buildPrompts returns a room's fixed prompt sequence, one pair per round,
// cycling the catalog when a game outlasts it.
func buildPrompts(rounds int) []PromptPair {
	prompts := make([]PromptPair, rounds)
	for i := range prompts {
		prompts[i] = promptCatalog[i%len(promptCatalog)]
	}
	return prompts
}
