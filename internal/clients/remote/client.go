package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/somanshu-agarwal/BareMinimum/internal/entity/expense"
	"github.com/somanshu-agarwal/BareMinimum/internal/model/customerr"
)

const (
	expensesPath = "/v1/expenses"
	ownerParam   = "owner"
)

type config interface {
	BaseURL() string
	TimeoutSeconds() int64
}

// Client talks to the remote record-collection endpoint. Every call carries
// the opaque identity as a bearer token and times out instead of blocking;
// transport failures surface as RemoteUnavailable, identity rejections as
// Unauthorized.
type Client struct {
	baseURL string
	client  *http.Client
}

func New(config config) *Client {
	return &Client{
		baseURL: config.BaseURL(),
		client: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds()) * time.Second,
		},
	}
}

type listResponse struct {
	Expenses []expense.Record `json:"expenses"`
}

type insertRequest struct {
	Expense expense.Record `json:"expense"`
}

type insertResponse struct {
	Expense expense.Record `json:"expense"`
}

// ListByOwner fetches the full remote set for the identity, newest first.
func (c *Client) ListByOwner(ctx context.Context, identity string) ([]expense.Record, error) {
	q := url.Values{}
	q.Set(ownerParam, identity)

	body, err := c.call(ctx, http.MethodGet, expensesPath+"?"+q.Encode(), identity, nil)
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err = json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "unmarshalling expenses")
	}
	return resp.Expenses, nil
}

// Insert writes one record and returns the canonical copy the remote stored.
func (c *Client) Insert(ctx context.Context, identity string, rec expense.Record) (expense.Record, error) {
	payload, err := json.Marshal(insertRequest{Expense: rec})
	if err != nil {
		return expense.Record{}, errors.Wrap(err, "marshalling expense")
	}

	body, err := c.call(ctx, http.MethodPost, expensesPath, identity, payload)
	if err != nil {
		return expense.Record{}, err
	}

	var resp insertResponse
	if err = json.Unmarshal(body, &resp); err != nil {
		return expense.Record{}, errors.Wrap(err, "unmarshalling inserted expense")
	}
	return resp.Expense, nil
}

func (c *Client) Delete(ctx context.Context, identity string, id string) error {
	_, err := c.call(ctx, http.MethodDelete, expensesPath+"/"+url.PathEscape(id), identity, nil)
	return err
}

func (c *Client) call(ctx context.Context, method, path, identity string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	req.Header.Set("Authorization", "Bearer "+identity)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, &customerr.RemoteUnavailableError{Cause: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &customerr.RemoteUnavailableError{Cause: err}
	}

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return nil, &customerr.UnauthorizedError{Identity: identity}
	case res.StatusCode >= http.StatusInternalServerError:
		return nil, &customerr.RemoteUnavailableError{
			Cause: fmt.Errorf("remote returned %d", res.StatusCode),
		}
	case res.StatusCode >= http.StatusBadRequest:
		return nil, errors.Errorf("remote rejected request: %d %s", res.StatusCode, string(body))
	}

	return body, nil
}
