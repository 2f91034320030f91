package catalog

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/pricewatch-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/pricewatch-backend/pkg/errors"
	"github.com/angelmondragon/pricewatch-backend/pkg/logger"
)

const (
	graphPath = "/_v/segment/graphql/v1"

	opSearch = "productSearchV3"
	opDetail = "Product"

	searchQueryHash = "efcfea65b452e9aa01e820e140a5b4a331adfce70470d2290c08bc4912b45212"
	searchSender    = "vtex.store-resources@0.x"
	detailQueryHash = "114aa626a0d49a5aae73229b9056bcc63556c88d76b629531e9a5e7344104451"
	detailSender    = "paguemenos.product-card@0.x"
	graphProvider   = "vtex.search-graphql@0.x"
)

var (
	errBaseURLRequired   = errors.New("catalog base url is required")
	errSearchURLRequired = errors.New("catalog search url is required")
	errLoggerRequired    = errors.New("catalog logger is required")
)

// SearchVariables is the graph-search variable set. Zero values are
// meaningful upstream, so nothing carries omitempty.
type SearchVariables struct {
	HideUnavailableItems bool    `json:"hideUnavailableItems"`
	SKUsFilter           string  `json:"skusFilter"`
	SimulationBehavior   string  `json:"simulationBehavior"`
	InstallmentCriteria  string  `json:"installmentCriteria"`
	ProductOriginVtex    bool    `json:"productOriginVtex"`
	Map                  string  `json:"map"`
	Query                string  `json:"query"`
	OrderBy              string  `json:"orderBy"`
	From                 int     `json:"from"`
	To                   int     `json:"to"`
	SelectedFacets       []Facet `json:"selectedFacets"`
	FacetsBehavior       string  `json:"facetsBehavior"`
	CategoryTreeBehavior string  `json:"categoryTreeBehavior"`
	WithFacets           bool    `json:"withFacets"`
	Variant              string  `json:"variant"`
}

type Facet struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type graphExtensions struct {
	PersistedQuery struct {
		Version    int    `json:"version"`
		SHA256Hash string `json:"sha256Hash"`
		Sender     string `json:"sender"`
		Provider   string `json:"provider"`
	} `json:"persistedQuery"`
	Variables string `json:"variables"`
}

type graphSearchResponse struct {
	Data struct {
		ProductSearch struct {
			Products []Product `json:"products"`
		} `json:"productSearch"`
	} `json:"data"`
}

type graphDetailResponse struct {
	Data struct {
		Product *Product `json:"product"`
	} `json:"data"`
}

type termSearchResponse struct {
	Data []Product `json:"data"`
}

// Client talks to the retailer's catalog surfaces with centralized headers,
// logging, and error mapping. Build one per run so connections are pooled
// for the run and released with it.
type Client struct {
	http         *http.Client
	baseURL      string
	searchURL    string
	apiKey       string
	searchAPIKey string
	userAgent    string
	pageSize     int
	salesChannel string
	company      string
	logger       *logger.Logger
}

// NewClient initializes the catalog client and validates its endpoints.
func NewClient(cfg config.CatalogConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	searchURL := strings.TrimSpace(cfg.SearchURL)
	if searchURL == "" {
		return nil, errSearchURLRequired
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	transport := http.DefaultTransport
	if base, ok := http.DefaultTransport.(*http.Transport); ok {
		transport = base.Clone()
	}

	return &Client{
		http:         &http.Client{Timeout: cfg.Timeout, Transport: transport},
		baseURL:      baseURL,
		searchURL:    searchURL,
		apiKey:       cfg.APIKey,
		searchAPIKey: cfg.SearchAPIKey,
		userAgent:    cfg.UserAgent,
		pageSize:     pageSize,
		salesChannel: cfg.SalesChannel,
		company:      cfg.Company,
		logger:       logg,
	}, nil
}

// SearchCatalog runs the persisted graph search and returns the page of
// products, which may be empty.
func (c *Client) SearchCatalog(ctx context.Context, vars SearchVariables) ([]Product, error) {
	target, err := c.graphURL(opSearch, searchQueryHash, searchSender, vars)
	if err != nil {
		return nil, err
	}

	c.log(ctx, "request", "search_catalog", map[string]any{
		"query": vars.Query,
		"from":  vars.From,
		"to":    vars.To,
	})

	var payload graphSearchResponse
	if err := c.getJSON(ctx, target, &payload); err != nil {
		c.log(ctx, "error", "search_catalog", map[string]any{"error": err.Error()})
		return nil, err
	}

	products := payload.Data.ProductSearch.Products
	c.log(ctx, "response", "search_catalog", map[string]any{"products": len(products)})
	return products, nil
}

// SearchTerms runs a term search through the retailer's mobile search proxy.
func (c *Client) SearchTerms(ctx context.Context, terms string, page int) ([]Product, error) {
	inner := url.Values{}
	inner.Set("apikey", c.searchAPIKey)
	inner.Set("terms", terms)
	inner.Set("page", strconv.Itoa(page))
	inner.Set("resultsperpage", strconv.Itoa(c.pageSize))
	inner.Set("showonlyavailable", "false")
	inner.Set("allowredirect", "true")

	params := url.Values{}
	params.Set("salesChannel", c.salesChannel)
	params.Set("company", c.company)
	params.Set("url", "/engage/search/v3/search?"+inner.Encode())
	params.Set("deviceId", uuid.NewString())
	params.Set("source", "mobile")

	target := c.searchURL + "?" + params.Encode()

	c.log(ctx, "request", "search_terms", map[string]any{
		"terms": terms,
		"page":  page,
	})

	var payload termSearchResponse
	if err := c.getJSON(ctx, target, &payload); err != nil {
		c.log(ctx, "error", "search_terms", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "search_terms", map[string]any{"products": len(payload.Data)})
	return payload.Data, nil
}

// ProductDetail fetches the rich record for one catalog id. A missing
// product comes back as (nil, nil).
func (c *Client) ProductDetail(ctx context.Context, id string) (*Product, error) {
	var vars struct {
		Identifier struct {
			Field string `json:"field"`
			Value string `json:"value"`
		} `json:"identifier"`
	}
	vars.Identifier.Field = "id"
	vars.Identifier.Value = id

	target, err := c.graphURL(opDetail, detailQueryHash, detailSender, vars)
	if err != nil {
		return nil, err
	}

	c.log(ctx, "request", "product_detail", map[string]any{"product_id": id})

	var payload graphDetailResponse
	if err := c.getJSON(ctx, target, &payload); err != nil {
		c.log(ctx, "error", "product_detail", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "product_detail", map[string]any{
		"product_id": id,
		"found":      payload.Data.Product != nil,
	})
	return payload.Data.Product, nil
}

func (c *Client) graphURL(operation, hash, sender string, variables any) (string, error) {
	rawVars, err := json.Marshal(variables)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding graph variables")
	}

	var ext graphExtensions
	ext.PersistedQuery.Version = 1
	ext.PersistedQuery.SHA256Hash = hash
	ext.PersistedQuery.Sender = sender
	ext.PersistedQuery.Provider = graphProvider
	ext.Variables = base64.StdEncoding.EncodeToString(rawVars)

	rawExt, err := json.Marshal(ext)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding graph extensions")
	}

	q := url.Values{}
	q.Set("workspace", "master")
	q.Set("maxAge", "short")
	q.Set("appsEtag", "remove")
	q.Set("domain", "store")
	q.Set("locale", "pt-BR")
	q.Set("operationName", operation)
	q.Set("variables", "{}")
	q.Set("extensions", string(rawExt))

	return c.baseURL + graphPath + "?" + q.Encode(), nil
}

func (c *Client) getJSON(ctx context.Context, target string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "building catalog request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "catalog request failed").
			WithDetails(map[string]any{"url": target})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "reading catalog response").
			WithDetails(map[string]any{"url": target})
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return pkgerrors.New(pkgerrors.CodeTransport, fmt.Sprintf("catalog returned status %d", resp.StatusCode)).
			WithDetails(map[string]any{"status": resp.StatusCode, "url": target})
	}
	if err := json.Unmarshal(body, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDecode, err, "decoding catalog response").
			WithDetails(map[string]any{"url": target})
	}
	return nil
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("catalog %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Debug(ctx, fmt.Sprintf("catalog %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"key", "token", "secret"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
