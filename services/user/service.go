package user

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"incentivehub/pkg/errutil"
	"incentivehub/pkg/identity"
	"incentivehub/pkg/repository"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	repo repository.Repository[User]
}

type ServiceParams struct {
	fx.In

	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
		repo: repository.ProvideStore[User](p.DB),
	}
}

type CreateParams struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Document  string  `json:"document"`
	Region    string  `json:"region"`
	Role      string  `json:"role"`
	ManagerID *string `json:"managerId"`
}

func (s *Service) Create(ctx context.Context, p CreateParams) (*User, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, errutil.BadRequest("name is required", nil)
	}

	result := identity.ValidatePersonalID(p.Document)
	if !result.Valid {
		return nil, errutil.BadRequest("invalid personal document", nil)
	}

	existing, err := s.repo.FindOne(ctx, &User{Document: result.Canonical})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errutil.Conflict("a user with this document already exists", nil)
	}

	if p.ManagerID != nil && *p.ManagerID != "" {
		manager, err := s.repo.FindOne(ctx, &User{ID: *p.ManagerID})
		if err != nil {
			return nil, err
		}
		if manager == nil {
			return nil, errutil.NotFound("manager not found", nil)
		}
	}

	role := p.Role
	if role == "" {
		role = "seller"
	}

	u := &User{
		ID:        s.node.Generate().String(),
		Name:      p.Name,
		Email:     p.Email,
		Document:  result.Canonical,
		Region:    p.Region,
		Role:      role,
		ManagerID: p.ManagerID,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	u, err := s.repo.FindOne(ctx, &User{ID: userID})
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errutil.NotFound("user not found", nil)
	}
	return u, nil
}

// GetByDocument looks a user up by either the raw or canonical form of its
// personal document.
func (s *Service) GetByDocument(ctx context.Context, document string) (*User, error) {
	result := identity.ValidatePersonalID(document)
	if !result.Valid {
		return nil, errutil.BadRequest("invalid personal document", nil)
	}
	u, err := s.repo.FindOne(ctx, &User{Document: result.Canonical})
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, errutil.NotFound("user not found", nil)
	}
	return u, nil
}

var Module = fx.Module("user",
	fx.Provide(NewService),
)
