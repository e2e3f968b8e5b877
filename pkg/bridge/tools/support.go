package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soundline/voicebridge/pkg/bridge/protocol"
)

// Tool names the session advertises to the model.
const (
	ToolGetClientProducts       = "get_client_products_by_client_id"
	ToolCreateSupportCase       = "create_support_case"
	ToolSendConversationSummary = "send_conversation_summary"
)

// Product is one contracted product of a client.
type Product struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// SupportCase is an open or in-progress support case.
type SupportCase struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CreatedDate string `json:"created_date"`
}

// ClientProducts is the lookup result returned to the model.
type ClientProducts struct {
	ClientName string        `json:"client_name,omitempty"`
	Products   []Product     `json:"products"`
	OpenCases  []SupportCase `json:"open_cases"`
}

// CaseReceipt confirms a newly created support case.
type CaseReceipt struct {
	CaseID      int64  `json:"case_id"`
	ClientName  string `json:"client_name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}

// ClientContact is the delivery target for a summary email.
type ClientContact struct {
	Name  string
	Email string
}

// Directory looks up and mutates client records.
type Directory interface {
	ClientProducts(ctx context.Context, clientID string) (ClientProducts, error)
	CreateSupportCase(ctx context.Context, clientID, description string) (CaseReceipt, error)
	ClientContact(ctx context.Context, clientID string) (ClientContact, error)
}

// MailReceipt reports an accepted summary delivery.
type MailReceipt struct {
	OperationID string
	CaseID      string
}

// SummaryMailer delivers a conversation summary to a client.
type SummaryMailer interface {
	SendSummary(ctx context.Context, to, name, clientID, summary string) (MailReceipt, error)
}

// NewSupportRouter wires the three support tools against their
// collaborators.
func NewSupportRouter(logger *slog.Logger, dir Directory, mailer SummaryMailer) *Router {
	r := NewRouter(logger)

	r.Register(ToolGetClientProducts, func(ctx context.Context, args map[string]any) (any, error) {
		clientID, err := stringArg(args, "client_id")
		if err != nil {
			return nil, err
		}
		return dir.ClientProducts(ctx, clientID)
	})

	r.Register(ToolCreateSupportCase, func(ctx context.Context, args map[string]any) (any, error) {
		clientID, err := stringArg(args, "client_id")
		if err != nil {
			return nil, err
		}
		description, err := stringArg(args, "description")
		if err != nil {
			return nil, err
		}
		return dir.CreateSupportCase(ctx, clientID, description)
	})

	r.Register(ToolSendConversationSummary, func(ctx context.Context, args map[string]any) (any, error) {
		clientID, err := stringArg(args, "client_id")
		if err != nil {
			return nil, err
		}
		summary, err := stringArg(args, "conversation_summary")
		if err != nil {
			return nil, err
		}

		contact, err := dir.ClientContact(ctx, clientID)
		if err != nil || contact.Email == "" {
			return nil, fmt.Errorf("client with ID %s not found or no email registered", clientID)
		}

		receipt, err := mailer.SendSummary(ctx, contact.Email, contact.Name, clientID, summary)
		if err != nil {
			return nil, fmt.Errorf("error sending email: %v", err)
		}
		return map[string]any{
			"message":      fmt.Sprintf("Summary sent successfully to %s (%s)", contact.Name, contact.Email),
			"operation_id": receipt.OperationID,
			"case_id":      receipt.CaseID,
		}, nil
	})

	return r
}

// Schemas declares the support tools for the upstream session
// configuration.
func Schemas() []protocol.ToolSchema {
	return []protocol.ToolSchema{
		{
			Type:        "function",
			Name:        ToolGetClientProducts,
			Description: "Returns the client name, contracted products and open support cases given their client ID.",
			Parameters: protocol.ParameterSchema{
				Type: "object",
				Properties: map[string]protocol.Parameter{
					"client_id": {Type: "string", Description: "Client ID."},
				},
				Required: []string{"client_id"},
			},
		},
		{
			Type:        "function",
			Name:        ToolCreateSupportCase,
			Description: "Creates a new support case for a client.",
			Parameters: protocol.ParameterSchema{
				Type: "object",
				Properties: map[string]protocol.Parameter{
					"client_id":   {Type: "string", Description: "Client ID."},
					"description": {Type: "string", Description: "Detailed description of the client's problem or request."},
				},
				Required: []string{"client_id", "description"},
			},
		},
		{
			Type:        "function",
			Name:        ToolSendConversationSummary,
			Description: "Sends a conversation summary via email to the client. Only use with existing clients before ending the call.",
			Parameters: protocol.ParameterSchema{
				Type: "object",
				Properties: map[string]protocol.Parameter{
					"client_id":            {Type: "string", Description: "Client ID."},
					"conversation_summary": {Type: "string", Description: "Detailed summary of the conversation, including reported problem, proposed solution and agreed next steps."},
				},
				Required: []string{"client_id", "conversation_summary"},
			},
		},
	}
}
