// Package gmail is a minimal Gmail REST client implementing the
// mailsync.MailProvider boundary: history listing and per-message
// metadata fetches, authorized by a stored OAuth token.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"mail-reminder-bot/internal/mailsync"
)

const apiBase = "https://gmail.googleapis.com/gmail/v1/users"

// storedToken mirrors the JSON written by the OAuth setup flow
// (google-auth's creds.to_json()). The refresh token keeps access
// tokens renewable indefinitely.
type storedToken struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	TokenURI     string `json:"token_uri"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Expiry       string `json:"expiry"`
}

type Client struct {
	httpClient *http.Client
	userID     string
}

var _ mailsync.MailProvider = (*Client)(nil)

// New builds a client from the stored OAuth token JSON. userID is the
// Gmail user, normally "me".
func New(ctx context.Context, tokenJSON, userID string) (*Client, error) {
	if tokenJSON == "" {
		return nil, fmt.Errorf("gmail oauth token is empty")
	}
	var st storedToken
	if err := json.Unmarshal([]byte(tokenJSON), &st); err != nil {
		return nil, fmt.Errorf("parse gmail oauth token: %w", err)
	}

	conf := &oauth2.Config{
		ClientID:     st.ClientID,
		ClientSecret: st.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: st.TokenURI},
	}
	tok := &oauth2.Token{
		AccessToken:  st.Token,
		RefreshToken: st.RefreshToken,
	}
	if st.Expiry != "" {
		if t, err := time.Parse(time.RFC3339, st.Expiry); err == nil {
			tok.Expiry = t
		}
	}
	return &Client{
		httpClient: conf.Client(ctx, tok),
		userID:     userID,
	}, nil
}

// ---------- wire types ------------------------------------------------------

type historyResponse struct {
	History []struct {
		ID            string `json:"id"`
		MessagesAdded []struct {
			Message struct {
				ID       string   `json:"id"`
				LabelIDs []string `json:"labelIds"`
			} `json:"message"`
		} `json:"messagesAdded"`
	} `json:"history"`
	HistoryID     string `json:"historyId"`
	NextPageToken string `json:"nextPageToken"`
}

type messageResponse struct {
	ID      string `json:"id"`
	Payload struct {
		Headers []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"headers"`
		Body struct {
			Data string `json:"data"`
		} `json:"body"`
		Parts []struct {
			MimeType string `json:"mimeType"`
			Body     struct {
				Data string `json:"data"`
			} `json:"body"`
		} `json:"parts"`
	} `json:"payload"`
}

// ---------- MailProvider ----------------------------------------------------

func (c *Client) ListHistory(startID uint64, pageToken string) (mailsync.HistoryPage, error) {
	q := url.Values{}
	q.Set("startHistoryId", strconv.FormatUint(startID, 10))
	q.Set("historyTypes", "messageAdded")
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	var resp historyResponse
	if err := c.get(fmt.Sprintf("%s/%s/history?%s", apiBase, c.userID, q.Encode()), &resp); err != nil {
		return mailsync.HistoryPage{}, err
	}

	page := mailsync.HistoryPage{NextPageToken: resp.NextPageToken}
	page.HistoryID, _ = strconv.ParseUint(resp.HistoryID, 10, 64)
	for _, h := range resp.History {
		rec := mailsync.HistoryRecord{}
		rec.ID, _ = strconv.ParseUint(h.ID, 10, 64)
		for _, added := range h.MessagesAdded {
			rec.AddedMessages = append(rec.AddedMessages, mailsync.AddedMessage{
				ID:       added.Message.ID,
				LabelIDs: added.Message.LabelIDs,
			})
		}
		page.Records = append(page.Records, rec)
	}
	return page, nil
}

func (c *Client) FetchMessage(id string) (mailsync.RawMessage, error) {
	var resp messageResponse
	if err := c.get(fmt.Sprintf("%s/%s/messages/%s?format=full", apiBase, c.userID, url.PathEscape(id)), &resp); err != nil {
		return mailsync.RawMessage{}, err
	}

	raw := mailsync.RawMessage{ID: resp.ID}
	for _, h := range resp.Payload.Headers {
		switch h.Name {
		case "Subject":
			raw.Subject = h.Value
		case "From":
			raw.Sender = h.Value
		case "To":
			raw.Recipient = h.Value
		}
	}
	raw.Body = plainTextBody(resp)
	return raw, nil
}

func plainTextBody(resp messageResponse) string {
	if b := decodeBody(resp.Payload.Body.Data); b != "" {
		return b
	}
	for _, part := range resp.Payload.Parts {
		if part.MimeType == "text/plain" {
			if b := decodeBody(part.Body.Data); b != "" {
				return b
			}
		}
	}
	return ""
}

func decodeBody(data string) string {
	if data == "" {
		return ""
	}
	b, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(data)
	if err != nil {
		return ""
	}
	return string(b)
}

func (c *Client) get(rawURL string, out any) error {
	resp, err := c.httpClient.Get(rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("gmail api status %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
