package extractor

import (
	"strings"

	"github.com/m-mizutani/gollem"
)

const systemPrompt = `You analyze messages from a nutrition coaching chat and decide what should be remembered about the user for future conversations.

Focus on extracting:
- Health conditions, symptoms, or medical history
- Dietary preferences, restrictions, or allergies
- Personal goals or objectives
- Important personal information
- Preferences about nutrition or health

Do NOT save:
- Casual greetings or small talk
- Temporary questions without personal context
- Information already in the conversation context

Return ONLY the JSON object, no additional text or markdown formatting.`

func buildUserPrompt(latestMessage, recentContext string) string {
	if strings.TrimSpace(recentContext) == "" {
		recentContext = newConversationContext
	}

	var b strings.Builder
	b.WriteString("Analyze the following user message and extract important information that should be remembered for future conversations.\n\n")
	b.WriteString("Context from conversation:\n")
	b.WriteString(recentContext)
	b.WriteString("\n\nUser Message:\n")
	b.WriteString(latestMessage)
	return b.String()
}

func responseSchema() *gollem.Parameter {
	flag := func(desc string) *gollem.Parameter {
		return &gollem.Parameter{Type: gollem.TypeBoolean, Description: desc}
	}

	return &gollem.Parameter{
		Type: gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"summary": {
				Type:        gollem.TypeString,
				Description: "A concise summary of the important information to remember (max 200 characters)",
			},
			"shouldSave": {
				Type:        gollem.TypeBoolean,
				Description: "Whether this message contains information worth remembering",
			},
			"topics": {
				Type:        gollem.TypeArray,
				Description: "Relevant topics",
				Items:       &gollem.Parameter{Type: gollem.TypeString},
			},
			"metadata": {
				Type: gollem.TypeObject,
				Properties: map[string]*gollem.Parameter{
					"hasHealthInfo":         flag("Mentions health conditions, symptoms or medical history"),
					"hasDietaryPreferences": flag("Mentions dietary preferences or restrictions"),
					"hasGoals":              flag("Mentions personal goals"),
					"hasAllergies":          flag("Mentions allergies"),
					"category": {
						Type:        gollem.TypeString,
						Description: "Primary category of the information",
						Enum:        []string{"health", "diet", "lifestyle", "general"},
					},
				},
				Required: []string{"hasHealthInfo", "hasDietaryPreferences", "hasGoals", "hasAllergies", "category"},
			},
		},
		Required: []string{"summary", "shouldSave", "topics", "metadata"},
	}
}
