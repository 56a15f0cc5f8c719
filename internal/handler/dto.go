package handler

import (
	"time"

	"github.com/msomdec/picprompt/internal/domain"
)

// UserDTO is the JSON representation of a user.
type UserDTO struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Avatar        string `json:"avatar,omitempty"`
	CreditBalance int    `json:"creditBalance"`
	CreatedAt     string `json:"createdAt"`
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:            u.ID,
		Name:          u.DisplayName,
		Email:         u.Email,
		Avatar:        u.AvatarURL,
		CreditBalance: u.CreditBalance,
		CreatedAt:     u.CreatedAt.Format(time.RFC3339),
	}
}

// GenerationDTO is the JSON representation of a generation record.
type GenerationDTO struct {
	ID        string `json:"id"`
	Prompt    string `json:"prompt"`
	Style     string `json:"style,omitempty"`
	Image     string `json:"image"`
	CreatedAt string `json:"createdAt"`
}

func toGenerationDTO(g *domain.Generation) GenerationDTO {
	return GenerationDTO{
		ID:        g.ID,
		Prompt:    g.Prompt,
		Style:     g.Style,
		Image:     g.ImageRef,
		CreatedAt: g.CreatedAt.Format(time.RFC3339),
	}
}

func toGenerationDTOs(gens []domain.Generation) []GenerationDTO {
	dtos := make([]GenerationDTO, len(gens))
	for i := range gens {
		dtos[i] = toGenerationDTO(&gens[i])
	}
	return dtos
}
