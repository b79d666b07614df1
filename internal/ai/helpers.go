package ai

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/kozaktomas/sign-vision/internal/descriptions"
)

//go:embed prompts/describe_system.txt
var describeSystemPrompt string

//go:embed prompts/describe.txt
var describePrompt string

//go:embed prompts/reference_system.txt
var referenceSystemPrompt string

//go:embed prompts/reference.txt
var referencePrompt string

//go:embed prompts/match_system.txt
var matchSystemPrompt string

//go:embed prompts/match.txt
var matchPrompt string

// buildReferenceBlock renders every reference as a numbered block, in corpus order.
func buildReferenceBlock(references []descriptions.Entry) string {
	var b strings.Builder
	for i, ref := range references {
		fmt.Fprintf(&b, "\n--- إشارة رقم %d: %s ---\n%s\n", i+1, ref.Name, ref.Description)
	}
	return b.String()
}

// buildMatchPrompt builds the comparison prompt for a candidate description.
func buildMatchPrompt(description string, references []descriptions.Entry) string {
	return fmt.Sprintf(matchPrompt, description, buildReferenceBlock(references))
}

// findSignName returns the first reference name, in corpus order, that
// occurs anywhere in reply. A shorter name contained in a longer one wins
// when it comes first.
func findSignName(reply string, references []descriptions.Entry) string {
	for _, ref := range references {
		if ref.Name != "" && strings.Contains(reply, ref.Name) {
			return ref.Name
		}
	}
	return ""
}
