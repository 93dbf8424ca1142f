package scenario

import (
	"fmt"
	"strings"
)

// ConfigError — сценарий не прошёл валидацию, сессия не создаётся.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return "scenario config: missing or invalid field " + e.Field
}

func (sc *Scenario) validate() error {
	if strings.TrimSpace(sc.Product) == "" {
		return &ConfigError{Field: "product"}
	}
	if strings.TrimSpace(sc.Industry) == "" {
		return &ConfigError{Field: "industry"}
	}

	switch sc.Buyer {
	case BuyerConsumer:
		if sc.Consumer == nil {
			return &ConfigError{Field: "consumer"}
		}
	case BuyerBusiness:
		if sc.Business == nil {
			return &ConfigError{Field: "business"}
		}
	default:
		return &ConfigError{Field: "buyer"}
	}

	if sc.QuestionBudget < 0 {
		return &ConfigError{Field: "question_budget"}
	}
	return nil
}

func describeBuyer(sc *Scenario) string {
	if sc.Buyer == BuyerBusiness {
		b := sc.Business
		return fmt.Sprintf(
			"a %s at a %s company in the %s sector, buying on behalf of the business",
			b.Role, b.CompanySize, b.Sector,
		)
	}

	c := sc.Consumer
	who := fmt.Sprintf("a %d-year-old", c.Age)
	if c.Gender != "" {
		who = fmt.Sprintf("a %d-year-old %s", c.Age, c.Gender)
	}
	if len(c.Traits) > 0 {
		who = strings.Join(c.Traits, ", ") + " " + who
	}
	return who + ", buying for personal use"
}

func describeTone(difficulty string) string {
	switch difficulty {
	case "easy":
		return "friendly, open and forgiving"
	case "hard":
		return "demanding, impatient and hard to impress"
	default:
		return "confident and slightly skeptical"
	}
}

// BuildScript детерминированно собирает стартовую инструкцию персоны и
// затравочную реплику продавца из конфигурации сценария.
func BuildScript(sc *Scenario, questionBudget int) (instruction, seed string, err error) {
	if err := sc.validate(); err != nil {
		return "", "", err
	}

	if sc.QuestionBudget > 0 {
		questionBudget = sc.QuestionBudget
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are role-playing as %s shopping for %s. ", describeBuyer(sc), sc.Product)
	fmt.Fprintf(&b, "You are speaking to a salesperson from the %s industry (the user), and your job is to EVALUATE their pitch.\n\n", sc.Industry)

	b.WriteString("YOUR ROLE:\n")
	b.WriteString("- You are the BUYER. The user is the SELLER.\n")
	b.WriteString("- You do NOT try to sell. You ask questions about what they are selling.\n")
	b.WriteString("- Ask ONE question per message.\n")
	fmt.Fprintf(&b, "- Ask a TOTAL of %d questions, each on a different topic (design, materials, uniqueness, brand reputation, service, etc).\n", questionBudget)
	fmt.Fprintf(&b, "- Your tone is %s.\n", describeTone(sc.Difficulty))
	b.WriteString("- Your questions should be easy to understand and directly related to what the user just said.\n\n")

	fmt.Fprintf(&b, "AFTER ASKING %d QUESTIONS:\n", questionBudget)
	fmt.Fprintf(&b, "- Once the user has responded to all %d, SWITCH OUT OF CHARACTER.\n", questionBudget)
	b.WriteString("- Then provide detailed feedback like this:\n\n")
	b.WriteString("**Feedback:** [Your honest, concise critique, covering persuasiveness, clarity, relevance to your stated needs, and concrete suggestions to improve.]\n\n")
	b.WriteString("Do NOT answer questions. Only ask. Then evaluate.")

	seed = fmt.Sprintf("Start by trying to sell me %s.", sc.Product)
	return b.String(), seed, nil
}

// Default — встроенная персона на случай, когда клиент не прислал start_session.
func Default() *Scenario {
	return &Scenario{
		Name:  "default-furniture-buyer",
		Buyer: BuyerConsumer,
		Consumer: &ConsumerProfile{
			Age:    30,
			Gender: "woman",
			Traits: []string{"wealthy", "style-conscious"},
		},
		Product:    "high-end wooden furniture",
		Industry:   "luxury furniture",
		Difficulty: "medium",
	}
}
