package sensortag

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/farshidtz/senml/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

// Device is a SensorTag reached through a BLE gateway. The gateway owns the
// wireless link; any transport or status error means the reading could not
// be taken and the tag may need to be reconnected.
type Device interface {
	Connect(ctx context.Context) error
	Enable(ctx context.Context, sensor string) error
	Disable(ctx context.Context, sensor string) error
	Read(ctx context.Context, sensor string) ([]float64, error)
}

type sensorTag struct {
	gatewayURL string
	address    string
}

var tracer = otel.Tracer("integration-sensortag/device")

func New(gatewayURL, address string) Device {
	return &sensorTag{
		gatewayURL: gatewayURL,
		address:    address,
	}
}

func (t *sensorTag) Connect(ctx context.Context) error {
	var err error

	ctx, span := tracer.Start(ctx, "connect-device")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	err = t.post(ctx, fmt.Sprintf("%s/api/v1/devices/%s/connect", t.gatewayURL, t.address))
	if err != nil {
		err = fmt.Errorf("failed to connect to sensortag %s: %s", t.address, err.Error())
	}

	return err
}

func (t *sensorTag) Enable(ctx context.Context, sensor string) error {
	var err error

	ctx, span := tracer.Start(ctx, "enable-sensor")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	err = t.post(ctx, fmt.Sprintf("%s/api/v1/devices/%s/sensors/%s/enable", t.gatewayURL, t.address, sensor))
	if err != nil {
		err = fmt.Errorf("failed to enable %s: %s", sensor, err.Error())
	}

	return err
}

func (t *sensorTag) Disable(ctx context.Context, sensor string) error {
	var err error

	ctx, span := tracer.Start(ctx, "disable-sensor")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	err = t.post(ctx, fmt.Sprintf("%s/api/v1/devices/%s/sensors/%s/disable", t.gatewayURL, t.address, sensor))
	if err != nil {
		err = fmt.Errorf("failed to disable %s: %s", sensor, err.Error())
	}

	return err
}

// Read fetches the current value resource for a sensor. The gateway answers
// with a senml pack holding one record per output value, primary value
// first.
func (t *sensorTag) Read(ctx context.Context, sensor string) ([]float64, error) {
	var err error

	ctx, span := tracer.Start(ctx, "read-sensor")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	httpClient := http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	var req *http.Request
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/v1/devices/%s/sensors/%s", t.gatewayURL, t.address, sensor), nil)
	if err != nil {
		err = fmt.Errorf("failed to create request: %s", err.Error())
		return nil, err
	}

	req.Header.Add("Accept", "application/senml+json")

	var resp *http.Response
	resp, err = httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("failed to read %s: %s", sensor, err.Error())
		return nil, err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("failed to read %s, expected status code %d but got %d", sensor, http.StatusOK, resp.StatusCode)
		return nil, err
	}

	var bodyBytes []byte
	bodyBytes, err = io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("failed to read response body: %s", err.Error())
		return nil, err
	}

	pack := senml.Pack{}
	err = json.Unmarshal(bodyBytes, &pack)
	if err != nil {
		err = fmt.Errorf("failed to unmarshal response body: %s", err.Error())
		return nil, err
	}

	err = pack.Validate()
	if err != nil {
		err = fmt.Errorf("gateway returned an invalid senml pack: %s", err.Error())
		return nil, err
	}

	values := make([]float64, 0, 2)
	for _, r := range pack {
		if r.Value != nil {
			values = append(values, *r.Value)
		}
	}

	if len(values) == 0 {
		err = fmt.Errorf("no values in response from %s", sensor)
		return nil, err
	}

	return values, nil
}

func (t *sensorTag) post(ctx context.Context, url string) error {
	httpClient := http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %s", err.Error())
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %s", err.Error())
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed, expected status code %d but got %d", http.StatusOK, resp.StatusCode)
	}

	return nil
}
