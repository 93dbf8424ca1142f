package scenario

import "context"

type BuyerKind string

const (
	BuyerConsumer BuyerKind = "consumer"
	BuyerBusiness BuyerKind = "business"
)

// ConsumerProfile описывает частного покупателя.
type ConsumerProfile struct {
	Age    int      `json:"age"`
	Gender string   `json:"gender"`
	Traits []string `json:"traits"`
}

// BusinessProfile описывает корпоративного покупателя.
type BusinessProfile struct {
	CompanySize string `json:"company_size"`
	Role        string `json:"role"`
	Sector      string `json:"sector"`
}

// Scenario — неизменяемая конфигурация персоны покупателя.
// Ровно один из Consumer/Business заполнен, в зависимости от Buyer.
type Scenario struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Buyer      BuyerKind        `json:"buyer"`
	Consumer   *ConsumerProfile `json:"consumer,omitempty"`
	Business   *BusinessProfile `json:"business,omitempty"`
	Product    string           `json:"product"`
	Industry   string           `json:"industry"`
	Difficulty string           `json:"difficulty"`

	// QuestionBudget — сколько вопросов персона задаёт до фидбека.
	// 0 = использовать серверный дефолт.
	QuestionBudget int `json:"question_budget,omitempty"`
}

type Repo interface {
	List(ctx context.Context) ([]*Scenario, error)
	Get(ctx context.Context, id string) (*Scenario, error)
	Create(ctx context.Context, sc *Scenario) (*Scenario, error)
	Delete(ctx context.Context, id string) error
}

type Service interface {
	List(ctx context.Context) ([]*Scenario, error)
	Get(ctx context.Context, id string) (*Scenario, error)
	Create(ctx context.Context, sc *Scenario) (*Scenario, error)
	Delete(ctx context.Context, id string) error
}
