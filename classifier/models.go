package classifier

import "encoding/json"

// Wire models for TensorFlow.js layers artifacts and the TensorFlow
// Serving REST API.

// LayersArtifact is the model.json of a TensorFlow.js layers model.
type LayersArtifact struct {
	Format          string          `json:"format,omitempty"`
	GeneratedBy     string          `json:"generatedBy,omitempty"`
	ConvertedBy     string          `json:"convertedBy,omitempty"`
	ModelTopology   json.RawMessage `json:"modelTopology"`
	WeightsManifest []WeightsGroup  `json:"weightsManifest"`
}

// WeightsGroup lists binary shards and the tensors packed in them.
type WeightsGroup struct {
	Paths   []string     `json:"paths"`
	Weights []WeightSpec `json:"weights"`
}

// WeightSpec describes one tensor inside the concatenated shards.
type WeightSpec struct {
	Name  string `json:"name"`
	Shape []int  `json:"shape"`
	Dtype string `json:"dtype"`
}

// topology is either {class_name, config} or a Keras wrapper holding
// model_config.
type topology struct {
	ClassName   string          `json:"class_name"`
	Config      json.RawMessage `json:"config"`
	ModelConfig *topology       `json:"model_config,omitempty"`
}

type sequentialConfig struct {
	Name   string      `json:"name"`
	Layers []layerJSON `json:"layers"`
}

type layerJSON struct {
	ClassName string      `json:"class_name"`
	Config    layerConfig `json:"config"`
}

type layerConfig struct {
	Name            string `json:"name"`
	Units           int    `json:"units,omitempty"`
	Filters         int    `json:"filters,omitempty"`
	KernelSize      []int  `json:"kernel_size,omitempty"`
	Strides         []int  `json:"strides,omitempty"`
	PoolSize        []int  `json:"pool_size,omitempty"`
	Padding         string `json:"padding,omitempty"`
	Activation      string `json:"activation,omitempty"`
	UseBias         *bool  `json:"use_bias,omitempty"`
	DataFormat      string `json:"data_format,omitempty"`
	TargetShape     []int  `json:"target_shape,omitempty"`
	BatchInputShape []*int `json:"batch_input_shape,omitempty"`
}

// PredictRequest is the TensorFlow Serving row format request.
type PredictRequest struct {
	SignatureName string          `json:"signature_name,omitempty"`
	Instances     [][][][]float32 `json:"instances"`
}

// PredictResponse holds one score vector per instance.
type PredictResponse struct {
	Predictions [][]float32 `json:"predictions"`
	Error       string      `json:"error,omitempty"`
}

// ModelStatus is returned by GET /v1/models/{name}.
type ModelStatus struct {
	ModelVersionStatus []VersionStatus `json:"model_version_status"`
}

type VersionStatus struct {
	Version string `json:"version"`
	State   string `json:"state"`
	Status  struct {
		ErrorCode    string `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
}
