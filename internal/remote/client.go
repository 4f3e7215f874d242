// Package remote is the RPC client for the hosted partnership service.
//
// The service exposes four calls: create_invite, accept_invite,
// dissolve_partnership and get_partner. Everything else in the application
// works purely against local data; this client is the only code that talks
// to the partnership endpoints directly.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

// Client calls the partnership service's RPC endpoints.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *log.Logger
}

// NewClient creates a Client. A nil httpClient means a default client with
// a 10 second timeout; a nil logger means a default stderr logger.
func NewClient(baseURL, token string, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
		logger:  logger,
	}
}

// InviteGrant is the service's response to create_invite.
type InviteGrant struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PartnershipInfo describes an established partnership.
type PartnershipInfo struct {
	PartnershipID string `json:"partnership_id"`
	PartnerID     string `json:"partner_id"`
	PartnerName   string `json:"partner_name,omitempty"`
}

// CreateInvite asks the service to mint a new invite code for the user.
func (c *Client) CreateInvite(ctx context.Context, userID string) (*InviteGrant, error) {
	var grant InviteGrant
	err := c.call(ctx, "create_invite", map[string]string{"user_id": userID}, &grant)
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// AcceptInvite redeems an invite code on behalf of the user and returns the
// resulting partnership.
func (c *Client) AcceptInvite(ctx context.Context, userID, code string) (*PartnershipInfo, error) {
	var info PartnershipInfo
	err := c.call(ctx, "accept_invite", map[string]string{
		"user_id": userID,
		"code":    code,
	}, &info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// DissolvePartnership ends the user's active partnership on the service.
func (c *Client) DissolvePartnership(ctx context.Context, userID string) error {
	return c.call(ctx, "dissolve_partnership", map[string]string{"user_id": userID}, nil)
}

// GetPartner fetches the user's current partnership. Returns (nil, nil)
// when the service reports the user has none.
func (c *Client) GetPartner(ctx context.Context, userID string) (*PartnershipInfo, error) {
	var info PartnershipInfo
	err := c.call(ctx, "get_partner", map[string]string{"user_id": userID}, &info)
	if Is(err, CodeNoPartnership) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// rpcFailure is the service's error envelope.
type rpcFailure struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// call posts JSON params to /rpc/<fn> and decodes the response into out.
// Failures come back classified.
func (c *Client) call(ctx context.Context, fn string, params, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode %s params: %w", fn, err)
	}

	url := fmt.Sprintf("%s/rpc/%s", c.baseURL, fn)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", fn, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Code: CodeNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Error{Code: CodeNetwork, Message: err.Error()}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &Error{Code: CodeRateLimited, Message: failureMessage(data, resp.Status)}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return &Error{Code: CodeSessionExpired, Message: failureMessage(data, resp.Status)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Printf("%s failed: %s", fn, resp.Status)
		return Classify(fmt.Errorf("%s", failureMessage(data, resp.Status)))
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", fn, err)
	}
	return nil
}

func failureMessage(data []byte, fallback string) string {
	var f rpcFailure
	if err := json.Unmarshal(data, &f); err == nil {
		if f.Message != "" {
			return f.Message
		}
		if f.Error != "" {
			return f.Error
		}
	}
	if s := strings.TrimSpace(string(data)); s != "" {
		return s
	}
	return fallback
}
