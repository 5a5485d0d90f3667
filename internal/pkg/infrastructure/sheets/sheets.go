package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

// Handle identifies an authenticated worksheet session. The token inside it
// expires server side, so callers must be prepared to Open a new handle when
// an insert is rejected.
type Handle struct {
	Token         string
	SpreadsheetID string
	WorksheetID   string
}

type Client interface {
	Open(ctx context.Context) (Handle, error)
	InsertRow(ctx context.Context, handle Handle, index int, cells []any) error
}

type client struct {
	baseURL         string
	credentialsFile string
	spreadsheetName string
	worksheetName   string
}

type serviceCredentials struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

var tracer = otel.Tracer("integration-sensortag/sheets")

func New(baseURL, credentialsFile, spreadsheetName, worksheetName string) Client {
	return &client{
		baseURL:         baseURL,
		credentialsFile: credentialsFile,
		spreadsheetName: spreadsheetName,
		worksheetName:   worksheetName,
	}
}

// Open authenticates with the sheet service and resolves the configured
// spreadsheet and worksheet names to their identifiers. The credentials file
// is read on every call so that rotated keys are picked up on re-login.
func (c *client) Open(ctx context.Context) (Handle, error) {
	var err error

	ctx, span := tracer.Start(ctx, "open-sheet-session")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	var creds serviceCredentials
	creds, err = readCredentials(c.credentialsFile)
	if err != nil {
		return Handle{}, err
	}

	var token string
	token, err = c.mintToken(ctx, creds)
	if err != nil {
		err = fmt.Errorf("failed to authenticate against sheet service: %s", err.Error())
		return Handle{}, err
	}

	var spreadsheetID string
	spreadsheetID, err = c.lookup(ctx, token, fmt.Sprintf("%s/v1/spreadsheets?name=%s", c.baseURL, url.QueryEscape(c.spreadsheetName)))
	if err != nil {
		err = fmt.Errorf("failed to find spreadsheet %s (it must be shared with %s): %s", c.spreadsheetName, creds.ClientEmail, err.Error())
		return Handle{}, err
	}

	var worksheetID string
	worksheetID, err = c.lookup(ctx, token, fmt.Sprintf("%s/v1/spreadsheets/%s/worksheets?name=%s", c.baseURL, spreadsheetID, url.QueryEscape(c.worksheetName)))
	if err != nil {
		err = fmt.Errorf("failed to find worksheet %s: %s", c.worksheetName, err.Error())
		return Handle{}, err
	}

	return Handle{Token: token, SpreadsheetID: spreadsheetID, WorksheetID: worksheetID}, nil
}

// InsertRow adds a row at the given 1 based index, pushing existing rows
// down. The service answers 201 on success and anything else when the
// session is no longer usable.
func (c *client) InsertRow(ctx context.Context, handle Handle, index int, cells []any) error {
	var err error

	ctx, span := tracer.Start(ctx, "insert-row")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	payload := struct {
		Index  int   `json:"index"`
		Values []any `json:"values"`
	}{Index: index, Values: cells}

	var body []byte
	body, err = json.Marshal(payload)
	if err != nil {
		err = fmt.Errorf("failed to marshal row: %s", err.Error())
		return err
	}

	httpClient := http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	var req *http.Request
	req, err = http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/v1/spreadsheets/%s/worksheets/%s/rows", c.baseURL, handle.SpreadsheetID, handle.WorksheetID),
		bytes.NewBuffer(body),
	)
	if err != nil {
		err = fmt.Errorf("failed to create request: %s", err.Error())
		return err
	}

	req.Header.Add("Authorization", "Bearer "+handle.Token)
	req.Header.Add("Content-Type", "application/json")

	var resp *http.Response
	resp, err = httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("failed to insert row: %s", err.Error())
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		err = fmt.Errorf("failed to insert row, expected status code %d but got %d", http.StatusCreated, resp.StatusCode)
		return err
	}

	return nil
}

func (c *client) mintToken(ctx context.Context, creds serviceCredentials) (string, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("failed to marshal credentials: %s", err.Error())
	}

	httpClient := http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/token", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %s", err.Error())
	}

	req.Header.Add("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %s", err.Error())
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("expected status code %d but got %d", http.StatusOK, resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %s", err.Error())
	}

	result := struct {
		AccessToken string `json:"access_token"`
	}{}

	err = json.Unmarshal(bodyBytes, &result)
	if err != nil {
		return "", fmt.Errorf("failed to unmarshal response body: %s", err.Error())
	}

	if result.AccessToken == "" {
		return "", fmt.Errorf("sheet service returned an empty access token")
	}

	return result.AccessToken, nil
}

func (c *client) lookup(ctx context.Context, token, lookupURL string) (string, error) {
	httpClient := http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %s", err.Error())
	}

	req.Header.Add("Authorization", "Bearer "+token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %s", err.Error())
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("expected status code %d but got %d", http.StatusOK, resp.StatusCode)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %s", err.Error())
	}

	result := struct {
		ID string `json:"id"`
	}{}

	err = json.Unmarshal(bodyBytes, &result)
	if err != nil {
		return "", fmt.Errorf("failed to unmarshal response body: %s", err.Error())
	}

	if result.ID == "" {
		return "", fmt.Errorf("response contained no id")
	}

	return result.ID, nil
}

func readCredentials(path string) (serviceCredentials, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return serviceCredentials{}, fmt.Errorf("failed to read credentials from %s: %s", path, err.Error())
	}

	creds := serviceCredentials{}
	err = json.Unmarshal(contents, &creds)
	if err != nil {
		return serviceCredentials{}, fmt.Errorf("failed to unmarshal credentials from %s: %s", path, err.Error())
	}

	if creds.ClientEmail == "" || creds.PrivateKey == "" {
		return serviceCredentials{}, fmt.Errorf("credentials in %s lack client_email or private_key", path)
	}

	return creds, nil
}
