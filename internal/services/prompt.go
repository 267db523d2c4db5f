package services

import (
	"fmt"
	"strings"

	"github.com/tbourn/fantasy-letters-backend/internal/domain"
)

// replyInstruction is sent as the user turn; the persona and transcript
// travel in the system turn.
const replyInstruction = "Please write the letter response."

var letterGuidelines = []string{
	"Age-appropriate and encouraging",
	"Consistent with %[1]s's personality and backstory",
	"Reference things from the conversation history",
	"Ask questions to keep the conversation going",
	"Be magical and imaginative",
	"Around 150-250 words",
}

// BuildPrompt renders the generation request for creature's next letter.
// history is the transcript oldest first, excluding userLetter, which is
// appended as the newest entry when non-empty.
func BuildPrompt(creature domain.Creature, history []domain.Message, userLetter, notes string, delivery domain.DeliveryKind) GenerationRequest {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, a magical creature with this background: %s\n\n", creature.Name, creature.Backstory)
	b.WriteString("You are writing a letter back to a child who has been corresponding with you. Here is your conversation history:\n\n")

	for _, m := range history {
		writeTurn(&b, creature.Name, m.Sender, m.Content)
	}
	if userLetter != "" {
		writeTurn(&b, creature.Name, domain.SenderUser, userLetter)
	}

	if notes != "" {
		fmt.Fprintf(&b, "Additional context: %s\n\n", notes)
	}

	fmt.Fprintf(&b, "Write a warm, engaging letter response from %s's perspective. Make it:\n", creature.Name)
	for _, g := range letterGuidelines {
		b.WriteString("- ")
		if strings.Contains(g, "%[1]s") {
			fmt.Fprintf(&b, g, creature.Name)
		} else {
			b.WriteString(g)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if delivery == domain.DeliveryPhysical {
		b.WriteString("This will be printed and mailed as a physical letter, so make it special!\n\n")
	}
	b.WriteString(`Write only the letter content, not "Dear [name]" or signature - just the body text.`)

	return GenerationRequest{System: b.String(), User: replyInstruction}
}

func writeTurn(b *strings.Builder, creatureName string, sender domain.SenderKind, content string) {
	if sender == domain.SenderUser {
		b.WriteString("You wrote: ")
	} else {
		fmt.Fprintf(b, "%s wrote: ", creatureName)
	}
	b.WriteString(content)
	b.WriteString("\n\n")
}
