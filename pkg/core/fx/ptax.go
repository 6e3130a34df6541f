// Package fx fetches the USD→BRL PTAX reference rate from the Banco
// Central olinda API. The rate feeds ShipmentConfig.FXRateUSDBRL; the
// engine itself never performs lookups.
package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the BCB olinda PTAX service root.
const DefaultBaseURL = "https://olinda.bcb.gov.br/olinda/servico/PTAX/versao/v1/odata"

// Quote is one PTAX fixing.
type Quote struct {
	Buy  float64 `json:"cotacaoCompra"`
	Sell float64 `json:"cotacaoVenda"`
	At   string  `json:"dataHoraCotacao"`
}

// Client queries the PTAX service. BaseURL is injectable for tests.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient() *Client {
	return &Client{
		BaseURL: DefaultBaseURL,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// OnDate fetches the PTAX quote for a specific date. The API returns an
// empty value list on non-business days.
func (c *Client) OnDate(ctx context.Context, date time.Time) (Quote, error) {
	endpoint := fmt.Sprintf(
		"%s/CotacaoDolarDia(dataCotacao=@dataCotacao)?@dataCotacao=%s&$format=json",
		c.BaseURL,
		url.QueryEscape(fmt.Sprintf("'%s'", date.Format("01-02-2006"))),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("fx: build request: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("fx: fetch PTAX: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("fx: PTAX service returned %s", resp.Status)
	}

	var payload struct {
		Value []Quote `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Quote{}, fmt.Errorf("fx: decode PTAX response: %w", err)
	}
	if len(payload.Value) == 0 {
		return Quote{}, fmt.Errorf("fx: no PTAX fixing for %s", date.Format("2006-01-02"))
	}
	return payload.Value[len(payload.Value)-1], nil
}

// Latest walks back from today to the most recent business-day fixing,
// looking at most a week behind.
func (c *Client) Latest(ctx context.Context) (Quote, error) {
	day := time.Now()
	var lastErr error
	for i := 0; i < 7; i++ {
		q, err := c.OnDate(ctx, day)
		if err == nil {
			return q, nil
		}
		lastErr = err
		day = day.AddDate(0, 0, -1)
	}
	return Quote{}, fmt.Errorf("fx: no PTAX fixing in the last week: %w", lastErr)
}
