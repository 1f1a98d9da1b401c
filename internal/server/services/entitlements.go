package services

import (
	"slices"

	"github.com/dmitrijs2005/gophchat/internal/llm"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
)

// DefaultChatModel is used when a request names no model.
const DefaultChatModel = llm.ChatModelID

type ChatModel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Entitlements struct {
	MaxMessagesPerDay     int
	AvailableChatModelIDs []string
}

var entitlementsByUserType = map[auth.UserType]Entitlements{
	auth.UserTypeRegular: {
		MaxMessagesPerDay:     100,
		AvailableChatModelIDs: []string{llm.ChatModelID, llm.ReasoningModelID},
	},
}

// EntitlementsFor returns the limits of a user type. Unknown types get
// nothing.
func EntitlementsFor(t auth.UserType) Entitlements {
	return entitlementsByUserType[t]
}

// ChatModels lists the selectable models with their configured display names.
func ChatModels(cfg *config.Config) []ChatModel {
	return []ChatModel{
		{
			ID:          llm.ChatModelID,
			Name:        cfg.ChatModelDisplayName,
			Description: "Advanced multimodal model with vision and text capabilities",
		},
		{
			ID:          llm.ReasoningModelID,
			Name:        cfg.ReasoningModelDisplayName,
			Description: "Fast and efficient model with advanced reasoning capabilities",
		},
	}
}

// ModelsFor filters ChatModels down to what t may use.
func ModelsFor(cfg *config.Config, t auth.UserType) []ChatModel {
	allowed := EntitlementsFor(t).AvailableChatModelIDs
	var out []ChatModel
	for _, m := range ChatModels(cfg) {
		if slices.Contains(allowed, m.ID) {
			out = append(out, m)
		}
	}
	return out
}
