package vectorizer

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/kailas-cloud/vecmigrate/internal/domain"
)

const sampleDoc = `{
  "algorithms": [{"name": "hnsw-1", "kind": "hnsw", "hnswParameters": {"m": 4}}],
  "profiles": [{"name": "profile-1", "algorithm": "hnsw-1", "vectorizer": "aoai"}],
  "vectorizers": [
    {
      "name": "aoai",
      "kind": "azureOpenAI",
      "azureOpenAIParameters": {
        "resourceUri": "https://example.openai.azure.com",
        "deploymentId": "text-embedding-3-small"
      }
    },
    {
      "name": "skill",
      "kind": "customWebApi",
      "customWebApiParameters": {
        "uri": "https://example.azurewebsites.net/api/embed_trigger",
        "httpMethod": "POST",
        "httpHeaders": {"x-custom": "1"}
      }
    },
    {
      "name": "vision",
      "kind": "aiServicesVision",
      "aiServicesVisionParameters": {"modelVersion": "2023-04-15"}
    }
  ]
}`

func TestParse_PreservesAttributes(t *testing.T) {
	vs, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(vs.Vectorizers) != 3 {
		t.Fatalf("expected 3 vectorizers, got %d", len(vs.Vectorizers))
	}
	if vs.Vectorizers[0].Kind != KindAzureOpenAI {
		t.Errorf("kind = %q", vs.Vectorizers[0].Kind)
	}
	if _, ok := vs.Attr("profiles"); !ok {
		t.Error("profiles attribute lost")
	}

	out, err := json.Marshal(vs)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var round map[string]any
	if err := json.Unmarshal(out, &round); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := round["algorithms"]; !ok {
		t.Error("algorithms lost on marshal")
	}
	vecs, _ := round["vectorizers"].([]any)
	if len(vecs) != 3 {
		t.Fatalf("vectorizers lost on marshal: %v", round["vectorizers"])
	}
	vision, _ := vecs[2].(map[string]any)
	if _, ok := vision["aiServicesVisionParameters"]; !ok {
		t.Error("unknown kind parameters lost on marshal")
	}
}

func TestInjectCredentials(t *testing.T) {
	vs, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	err = vs.InjectCredentials(map[string]string{
		"azureOpenAI":  "aoai-secret",
		"customWebApi": "func-secret",
	})
	if err != nil {
		t.Fatalf("InjectCredentials: %v", err)
	}

	aoai, err := vs.Vectorizers[0].Param(azureOpenAIParams)
	if err != nil {
		t.Fatalf("Param: %v", err)
	}
	if aoai["apiKey"] != "aoai-secret" {
		t.Errorf("apiKey = %v", aoai["apiKey"])
	}
	if aoai["deploymentId"] != "text-embedding-3-small" {
		t.Errorf("existing params lost: %v", aoai)
	}

	web, err := vs.Vectorizers[1].Param(customWebAPIParams)
	if err != nil {
		t.Fatalf("Param: %v", err)
	}
	headers, _ := web["httpHeaders"].(map[string]any)
	if headers[FunctionKeyHeader] != "func-secret" {
		t.Errorf("function key header = %v", headers[FunctionKeyHeader])
	}
	if headers["x-custom"] != "1" {
		t.Errorf("existing headers lost: %v", headers)
	}

	vision, err := vs.Vectorizers[2].Param("aiServicesVisionParameters")
	if err != nil {
		t.Fatalf("Param: %v", err)
	}
	if _, ok := vision["apiKey"]; ok {
		t.Error("unknown kind must pass through unmodified")
	}
}

func TestInjectCredentials_MissingKey(t *testing.T) {
	vs, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	err = vs.InjectCredentials(map[string]string{"azureOpenAI": "x"})
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestInjectCredentials_CreatesMissingParams(t *testing.T) {
	vs, err := Parse([]byte(`{"vectorizers":[{"name":"w","kind":"customWebApi"}]}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := vs.InjectCredentials(map[string]string{"customWebApi": "k"}); err != nil {
		t.Fatalf("InjectCredentials: %v", err)
	}
	p, err := vs.Vectorizers[0].Param(customWebAPIParams)
	if err != nil {
		t.Fatalf("Param: %v", err)
	}
	headers, _ := p["httpHeaders"].(map[string]any)
	if headers[FunctionKeyHeader] != "k" {
		t.Errorf("headers = %v", headers)
	}
}

func TestNames(t *testing.T) {
	vs, err := Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	names := vs.Names()
	if len(names) != 3 || names[0] != "aoai" || names[2] != "vision" {
		t.Errorf("Names() = %v", names)
	}
}
