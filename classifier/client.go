package classifier

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/juruen/rmdigit/inference"
	"github.com/juruen/rmdigit/log"
	"github.com/juruen/rmdigit/sampler"
)

const stateAvailable = "AVAILABLE"

// TFServing classifies frames through the TensorFlow Serving REST API.
type TFServing struct {
	client  *resty.Client
	base    string
	model   string
	version string
}

// NewTFServing returns a client for model served at base
// (e.g. http://localhost:8501). An empty version uses the latest one.
func NewTFServing(base, model, version string, hc *http.Client) *TFServing {
	var client *resty.Client
	if hc != nil {
		client = resty.NewWithClient(hc)
	} else {
		client = resty.New()
	}
	client.SetHeader("Accept", "application/json")

	return &TFServing{
		client:  client,
		base:    strings.TrimSuffix(base, "/"),
		model:   model,
		version: version,
	}
}

func (t *TFServing) modelURL() string {
	u := t.base + "/v1/models/" + t.model
	if t.version != "" {
		u += "/versions/" + t.version
	}
	return u
}

// Load checks that the model has an available version. It implements
// Loader.
func (t *TFServing) Load(ctx context.Context) (inference.Classifier, error) {
	var status ModelStatus
	res, err := t.client.R().
		SetContext(ctx).
		SetResult(&status).
		Get(t.modelURL())
	if err != nil {
		return nil, errors.Wrap(err, "failed to query model status")
	}
	if res.IsError() {
		return nil, errors.Errorf("API error: Status %d, Response: %s", res.StatusCode(), res.String())
	}

	for _, v := range status.ModelVersionStatus {
		log.Trace.Printf("tfserving: %s version %s is %s", t.model, v.Version, v.State)
		if v.State == stateAvailable {
			return t, nil
		}
	}
	return nil, errors.Errorf("model %s has no available version", t.model)
}

// Predict sends frame as a single instance and returns the first
// prediction.
func (t *TFServing) Predict(ctx context.Context, frame sampler.Frame) (inference.PredictionVector, error) {
	req := PredictRequest{Instances: frame.Tensor()}

	var out PredictResponse
	res, err := t.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&out).
		Post(t.modelURL() + ":predict")
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	if res.IsError() {
		return nil, errors.Errorf("API error: Status %d, Response: %s", res.StatusCode(), res.String())
	}
	if out.Error != "" {
		return nil, errors.New(out.Error)
	}
	if len(out.Predictions) == 0 {
		return nil, errors.New("empty prediction response")
	}

	return inference.PredictionVector(out.Predictions[0]), nil
}
