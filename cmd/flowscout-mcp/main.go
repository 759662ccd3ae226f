package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// record mirrors one row of the flowscout search API.
type record struct {
	Vendor      string `json:"vendor"`
	ProductName string `json:"product_name"`
	Target      string `json:"target"`
	Species     string `json:"species"`
	Conjugate   string `json:"conjugate"`
	Link        string `json:"link"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// searchResponse mirrors the flowscout search API response.
type searchResponse struct {
	Total       int       `json:"total"`
	Limit       int       `json:"limit"`
	Offset      int       `json:"offset"`
	Rows        []record  `json:"rows"`
	CacheStatus string    `json:"cache_status"`
	Error       *apiError `json:"error"`
}

// multiSearchResponse mirrors the flowscout search/all API response.
type multiSearchResponse struct {
	Total   int                        `json:"total"`
	Vendors map[string]*searchResponse `json:"vendors"`
	Error   *apiError                  `json:"error"`
}

func main() {
	apiURL := os.Getenv("FLOWSCOUT_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("FLOWSCOUT_API_KEY")

	s := server.NewMCPServer(
		"flowscout",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	// Harvests can take minutes on infinite-scroll catalogs.
	client := &http.Client{Timeout: 5 * time.Minute}

	searchTool := mcp.NewTool("search_reagents",
		mcp.WithDescription("Search one vendor catalog (BioLegend, Thermo Fisher or BD Biosciences) for flow cytometry antibodies against a target, for a species and excitation laser. Returns deduplicated listings with conjugate and product link."),
		mcp.WithString("vendor",
			mcp.Required(),
			mcp.Description("Vendor name, e.g. 'BioLegend', 'Thermo Fisher', 'BD'"),
		),
		mcp.WithString("target",
			mcp.Required(),
			mcp.Description("Molecular target (antigen), e.g. 'CD3', 'PD-1'"),
		),
		mcp.WithString("laser",
			mcp.Required(),
			mcp.Description("Excitation laser: 'UV', 'Violet', 'Blue', 'Yellow-Green', 'Red' or a wavelength such as '488'"),
		),
		mcp.WithString("species",
			mcp.Description("Reactivity species (default: 'Human')"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Rows per page (default: 50, max: 200)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Zero-based index of the first row (default: 0)"),
		),
		mcp.WithBoolean("audit",
			mcp.Description("Return every listing, including pack-size variants of the same reagent"),
		),
	)
	s.AddTool(searchTool, handleSearch(client, apiURL, apiKey))

	searchAllTool := mcp.NewTool("search_all_vendors",
		mcp.WithDescription("Search every supported vendor catalog concurrently for the same target, species and laser. A vendor that fails is reported without failing the others."),
		mcp.WithString("target",
			mcp.Required(),
			mcp.Description("Molecular target (antigen), e.g. 'CD3'"),
		),
		mcp.WithString("laser",
			mcp.Required(),
			mcp.Description("Excitation laser or wavelength"),
		),
		mcp.WithString("species",
			mcp.Description("Reactivity species (default: 'Human')"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Rows per vendor (default: 50, max: 200)"),
		),
	)
	s.AddTool(searchAllTool, handleSearchAll(client, apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiGet sends a GET request to the flowscout API and decodes the JSON body
// into out. Non-2xx responses still decode, so the API's error envelope
// reaches the caller.
func apiGet(ctx context.Context, client *http.Client, apiURL, apiKey, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}

func handleSearch(client *http.Client, apiURL, apiKey string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params := url.Values{}
		for _, name := range []string{"vendor", "target", "laser"} {
			v, err := request.RequireString(name)
			if err != nil {
				return mcp.NewToolResultError(name + " is required"), nil
			}
			params.Set(name, v)
		}
		if species := request.GetString("species", ""); species != "" {
			params.Set("species", species)
		}
		if limit := request.GetInt("limit", 0); limit > 0 {
			params.Set("limit", strconv.Itoa(limit))
		}
		if offset := request.GetInt("offset", 0); offset > 0 {
			params.Set("offset", strconv.Itoa(offset))
		}
		if request.GetBool("audit", false) {
			params.Set("audit", "1")
		}

		var resp searchResponse
		if err := apiGet(ctx, client, apiURL, apiKey, "/api/v1/search", params, &resp); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if resp.Error != nil {
			return mcp.NewToolResultError(formatError(resp.Error)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Showing %d of %d listings (offset %d, cache %s)\n\n",
			len(resp.Rows), resp.Total, resp.Offset, resp.CacheStatus)
		writeRows(&sb, resp.Rows, resp.Offset)
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleSearchAll(client *http.Client, apiURL, apiKey string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params := url.Values{}
		for _, name := range []string{"target", "laser"} {
			v, err := request.RequireString(name)
			if err != nil {
				return mcp.NewToolResultError(name + " is required"), nil
			}
			params.Set(name, v)
		}
		if species := request.GetString("species", ""); species != "" {
			params.Set("species", species)
		}
		if limit := request.GetInt("limit", 0); limit > 0 {
			params.Set("limit", strconv.Itoa(limit))
		}

		var resp multiSearchResponse
		if err := apiGet(ctx, client, apiURL, apiKey, "/api/v1/search/all", params, &resp); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if resp.Error != nil {
			return mcp.NewToolResultError(formatError(resp.Error)), nil
		}

		vendors := make([]string, 0, len(resp.Vendors))
		for v := range resp.Vendors {
			vendors = append(vendors, v)
		}
		sort.Strings(vendors)

		var sb strings.Builder
		fmt.Fprintf(&sb, "%d listings across %d vendors\n", resp.Total, len(vendors))
		for _, v := range vendors {
			r := resp.Vendors[v]
			fmt.Fprintf(&sb, "\n## %s\n", v)
			if r.Error != nil {
				fmt.Fprintf(&sb, "failed: %s\n", formatError(r.Error))
				continue
			}
			fmt.Fprintf(&sb, "Showing %d of %d\n", len(r.Rows), r.Total)
			writeRows(&sb, r.Rows, r.Offset)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func writeRows(sb *strings.Builder, rows []record, offset int) {
	for i, r := range rows {
		fmt.Fprintf(sb, "%d. %s | %s | %s\n   %s\n", offset+i+1, r.ProductName, r.Conjugate, r.Vendor, r.Link)
	}
}

func formatError(e *apiError) string {
	msg := e.Code + ": " + e.Message
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}
