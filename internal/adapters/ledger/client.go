package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"fxledger/internal/config"
	"fxledger/internal/domain"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	faultStaleObject = "5010"
	faultDuplicate   = "6240"

	maxErrorBody = 4096
)

// TokenProvider supplies bearer tokens for a tenant.
type TokenProvider interface {
	AccessToken(ctx context.Context, tenant domain.Tenant) (string, error)
	Expire(tenantID string)
}

// Client speaks the QuickBooks-style accounting API: realm-scoped paths, SyncToken versioning, Fault bodies.
type Client struct {
	http               *http.Client
	baseURL            string
	minorVersion       string
	tokens             TokenProvider
	callTimeout        time.Duration
	maxConflictRetries int
	throttleRetries    int
	throttleInterval   time.Duration
}

type exchangeRate struct {
	ID                 string      `json:"Id,omitempty"`
	SyncToken          string      `json:"SyncToken,omitempty"`
	SourceCurrencyCode string      `json:"SourceCurrencyCode"`
	TargetCurrencyCode string      `json:"TargetCurrencyCode"`
	Rate               json.Number `json:"Rate"`
	AsOfDate           string      `json:"AsOfDate"`
}

type companyCurrency struct {
	ID     string `json:"Id,omitempty"`
	Code   string `json:"Code"`
	Active *bool  `json:"Active,omitempty"`
}

type queryResponse struct {
	QueryResponse struct {
		ExchangeRate    []exchangeRate    `json:"ExchangeRate"`
		CompanyCurrency []companyCurrency `json:"CompanyCurrency"`
	} `json:"QueryResponse"`
}

type faultResponse struct {
	Fault struct {
		Error []struct {
			Message string `json:"Message"`
			Detail  string `json:"Detail"`
			Code    string `json:"code"`
		} `json:"Error"`
		Type string `json:"type"`
	} `json:"Fault"`
}

func (c *Client) GetExistingRate(ctx context.Context, tenant domain.Tenant, code string, date time.Time) (domain.RemoteRateRecord, error) {
	q := fmt.Sprintf(
		"select * from ExchangeRate where SourceCurrencyCode = '%s' and TargetCurrencyCode = '%s' and AsOfDate = '%s'",
		code, tenant.HomeCurrency, date.Format(domain.DateLayout),
	)

	var body queryResponse
	if err := c.query(ctx, tenant, q, &body); err != nil {
		return domain.RemoteRateRecord{}, fmt.Errorf("failed to get exchange rate %s/%s: %w", code, date.Format(domain.DateLayout), err)
	}
	if len(body.QueryResponse.ExchangeRate) == 0 {
		return domain.RemoteRateRecord{}, domain.ErrRemoteRateNotFound
	}
	return toRecord(body.QueryResponse.ExchangeRate[0])
}

// CreateOrUpdateRate creates the record when known is nil and updates known otherwise.
// A version conflict re-fetches the record and retries, at most maxConflictRetries times.
func (c *Client) CreateOrUpdateRate(
	ctx context.Context,
	tenant domain.Tenant,
	code string,
	date time.Time,
	rate decimal.Decimal,
	known *domain.RemoteRateRecord,
) (domain.RemoteRateRecord, domain.WriteKind, error) {
	log := logrus.WithFields(logrus.Fields{"tenant_id": tenant.ID, "currency": code})

	for attempt := 0; ; attempt++ {
		kind := domain.WriteCreated
		payload := exchangeRate{
			SourceCurrencyCode: code,
			TargetCurrencyCode: tenant.HomeCurrency,
			Rate:               json.Number(rate.String()),
			AsOfDate:           date.Format(domain.DateLayout),
		}
		if known != nil {
			kind = domain.WriteUpdated
			payload.ID = known.ID
			payload.SyncToken = known.VersionToken
		}

		var body struct {
			ExchangeRate exchangeRate `json:"ExchangeRate"`
		}
		err := c.do(ctx, tenant, http.MethodPost, c.companyURL(tenant, "exchangerate", nil), payload, &body)
		if err == nil {
			record, convErr := toRecord(body.ExchangeRate)
			if convErr != nil {
				return domain.RemoteRateRecord{}, "", convErr
			}
			return record, kind, nil
		}
		if !errors.Is(err, domain.ErrConflict) || attempt >= c.maxConflictRetries {
			return domain.RemoteRateRecord{}, "", fmt.Errorf("failed to write exchange rate %s: %w", code, err)
		}

		log.WithField("attempt", attempt+1).Warn("exchange rate version conflict, re-fetching")
		current, fetchErr := c.GetExistingRate(ctx, tenant, code, date)
		switch {
		case fetchErr == nil:
			known = &current
		case errors.Is(fetchErr, domain.ErrRemoteRateNotFound):
			known = nil
		default:
			return domain.RemoteRateRecord{}, "", fetchErr
		}
	}
}

// ListActiveCurrencies returns the active currency codes of the tenant's company, home currency included.
func (c *Client) ListActiveCurrencies(ctx context.Context, tenant domain.Tenant) (map[string]struct{}, error) {
	var body queryResponse
	if err := c.query(ctx, tenant, "select * from CompanyCurrency where Active = true", &body); err != nil {
		return nil, fmt.Errorf("failed to list active currencies: %w", err)
	}

	active := make(map[string]struct{}, len(body.QueryResponse.CompanyCurrency)+1)
	if tenant.HomeCurrency != "" {
		active[tenant.HomeCurrency] = struct{}{}
	}
	for _, cc := range body.QueryResponse.CompanyCurrency {
		if cc.Active != nil && !*cc.Active {
			continue
		}
		active[strings.ToUpper(cc.Code)] = struct{}{}
	}
	return active, nil
}

func (c *Client) AddCurrency(ctx context.Context, tenant domain.Tenant, code string) error {
	err := c.do(ctx, tenant, http.MethodPost, c.companyURL(tenant, "companycurrency", nil), companyCurrency{Code: code}, nil)
	if errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyActive, code)
	}
	if err != nil {
		return fmt.Errorf("failed to add currency %s: %w", code, err)
	}
	return nil
}

func (c *Client) query(ctx context.Context, tenant domain.Tenant, q string, out any) error {
	params := url.Values{}
	params.Set("query", q)
	return c.do(ctx, tenant, http.MethodGet, c.companyURL(tenant, "query", params), nil, out)
}

// do performs one logical call. Throttling responses are retried with exponential backoff,
// a 401 forces one credential refresh, everything else is classified and returned.
func (c *Client) do(ctx context.Context, tenant domain.Tenant, method, endpoint string, payload, out any) error {
	var raw []byte
	if payload != nil {
		var err error
		if raw, err = json.Marshal(payload); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	reauthorized := false
	operation := func() error {
		token, err := c.tokens.AccessToken(ctx, tenant)
		if err != nil {
			return backoff.Permanent(err)
		}

		status, body, err := c.send(ctx, method, endpoint, token, raw)
		if err != nil {
			return backoff.Permanent(err)
		}

		switch {
		case status >= 200 && status < 300:
			if out == nil || len(body) == 0 {
				return nil
			}
			if err = json.Unmarshal(body, out); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
			}
			return nil
		case status == http.StatusUnauthorized && !reauthorized:
			reauthorized = true
			c.tokens.Expire(tenant.ID)
			return backoff.Permanent(errRetryNow)
		case status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable:
			return fmt.Errorf("%w: throttled with status %d", domain.ErrRemoteUnavailable, status)
		default:
			return backoff.Permanent(classify(status, body))
		}
	}

	for {
		expBackoff := backoff.NewExponentialBackOff()
		expBackoff.InitialInterval = c.throttleInterval
		policy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(c.throttleRetries)), ctx)

		err := backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
			logrus.WithFields(logrus.Fields{"tenant_id": tenant.ID, "wait": wait}).WithError(err).Warn("ledger throttled, backing off")
		})
		if errors.Is(err, errRetryNow) {
			continue
		}
		return err
	}
}

var errRetryNow = errors.New("retry with fresh credential")

func (c *Client) send(ctx context.Context, method, endpoint, token string, raw []byte) (int, []byte, error) {
	callCtx := ctx
	if c.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.callTimeout)
		defer cancel()
	}

	var reader io.Reader
	if raw != nil {
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(callCtx, method, endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if raw != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, fmt.Errorf("%w: %s %s: %v", domain.ErrRemoteUnavailable, method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read response: %v", domain.ErrRemoteUnavailable, err)
	}
	return resp.StatusCode, body, nil
}

// classify maps a non-success response to the domain error taxonomy, keeping the remote detail.
func classify(status int, body []byte) error {
	var fault faultResponse
	detail := ""
	if err := json.Unmarshal(body, &fault); err == nil && len(fault.Fault.Error) > 0 {
		first := fault.Fault.Error[0]
		detail = first.Message
		if first.Detail != "" {
			detail += ": " + first.Detail
		}
		if first.Code == faultStaleObject || first.Code == faultDuplicate {
			return fmt.Errorf("%w: %s", domain.ErrConflict, detail)
		}
	}
	if detail == "" {
		detail = truncate(string(body))
	}

	switch {
	case status == http.StatusConflict:
		return fmt.Errorf("%w: %s", domain.ErrConflict, detail)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", domain.ErrAuthentication, status, detail)
	case status >= 500:
		return fmt.Errorf("%w: status %d: %s", domain.ErrRemoteUnavailable, status, detail)
	default:
		return fmt.Errorf("%w: status %d: %s", domain.ErrRejected, status, detail)
	}
}

func (c *Client) companyURL(tenant domain.Tenant, resource string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	if c.minorVersion != "" {
		params.Set("minorversion", c.minorVersion)
	}
	return fmt.Sprintf("%s/v3/company/%s/%s?%s",
		strings.TrimSuffix(c.baseURL, "/"), url.PathEscape(tenant.RealmID), resource, params.Encode())
}

func toRecord(er exchangeRate) (domain.RemoteRateRecord, error) {
	rate, err := decimal.NewFromString(er.Rate.String())
	if err != nil {
		return domain.RemoteRateRecord{}, fmt.Errorf("failed to parse remote rate %q: %w", er.Rate, err)
	}
	asOf, err := domain.ParseDay(er.AsOfDate)
	if err != nil {
		return domain.RemoteRateRecord{}, fmt.Errorf("failed to parse remote as-of date %q: %w", er.AsOfDate, err)
	}
	return domain.RemoteRateRecord{
		ID:             er.ID,
		SourceCurrency: er.SourceCurrencyCode,
		TargetCurrency: er.TargetCurrencyCode,
		Rate:           rate,
		AsOfDate:       asOf,
		VersionToken:   er.SyncToken,
	}, nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}

func NewClient(httpClient *http.Client, cfg config.Ledger, tokens TokenProvider) *Client {
	return &Client{
		http:               httpClient,
		baseURL:            cfg.BaseURL,
		minorVersion:       cfg.MinorVersion,
		tokens:             tokens,
		callTimeout:        cfg.RemoteCallTimeout(),
		maxConflictRetries: cfg.MaxConflictRetries,
		throttleRetries:    cfg.ThrottleRetries,
		throttleInterval:   500 * time.Millisecond,
	}
}
