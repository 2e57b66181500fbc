package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_IndicatorKeywordsMapToStatus(t *testing.T) {
	cases := []struct {
		name    string
		payload interface{}
		want    int
	}{
		{"auth", map[string]interface{}{"message": "Authentication failed: invalid api key"}, 401},
		{"rate limit", map[string]interface{}{"error": map[string]interface{}{"message": "Rate limit exceeded"}}, 429},
		{"not found", map[string]interface{}{"message": "Model not found"}, 404},
		{"validation", map[string]interface{}{"message": "Validation error: missing required field"}, 422},
		{"permission", map[string]interface{}{"message": "Forbidden: access denied"}, 403},
		{"timeout", map[string]interface{}{"message": "Request timed out"}, 408},
		{"upstream", map[string]interface{}{"message": "Bad gateway"}, 502},
		{"unavailable", map[string]interface{}{"message": "Service overloaded"}, 503},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Classify("openai", 0, tc.payload)
			assert.Equal(t, tc.want, res.Status)
		})
	}
}

func TestClassify_UnmatchedClientStatusDefaultsTo400(t *testing.T) {
	res := Classify("openai", 418, map[string]interface{}{"message": "I'm a teapot"})
	assert.Equal(t, 400, res.Status)
}

func TestClassify_UnmatchedServerStatusDefaultsTo500(t *testing.T) {
	res := Classify("openai", 599, map[string]interface{}{"message": "something broke"})
	assert.Equal(t, 500, res.Status)
}

func TestClassify_UnmatchedUnknownHintDefaultsToServerError(t *testing.T) {
	res := Classify("openai", 0, map[string]interface{}{"message": "mystery failure"})
	assert.Equal(t, 500, res.Status)
}

func TestClassify_ServerErrorUsesGenericOutwardMessageAndPreservesOriginal(t *testing.T) {
	res := Classify("anthropic", 0, map[string]interface{}{"message": "upstream connection reset"})
	assert.Equal(t, 502, res.Status)
	assert.NotContains(t, res.Message, "connection reset")
	assert.Equal(t, "upstream connection reset", res.ErrorDetails["original_message"])
}

func TestClassify_ClientErrorPassesProviderMessageThroughPrefixedOnce(t *testing.T) {
	res := Classify("openai", 0, map[string]interface{}{"message": "Validation error: field required"})
	assert.Equal(t, "openai error: Validation error: field required", res.Message)
}

func TestClassify_DoesNotDoublePrefixOnReclassification(t *testing.T) {
	first := Classify("openai", 0, map[string]interface{}{"message": "Validation error: field required"})
	second := Classify("openai", first.Status, first)
	assert.Equal(t, first.Message, second.Message)
}

func TestClassify_IdempotentOnItsOwnOutput(t *testing.T) {
	first := Classify("openai", 0, map[string]interface{}{"message": "Rate limit exceeded, quota hit"})
	second := Classify("openai", first.Status, first)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.ErrorDetails["family"], second.ErrorDetails["family"])
}

func TestClassify_BoundedDepthDoesNotPanicOnDeepNesting(t *testing.T) {
	var payload interface{} = "timeout deep inside"
	for i := 0; i < 50; i++ {
		payload = map[string]interface{}{"wrapped": payload}
	}
	res := Classify("openai", 0, payload)
	assert.Equal(t, 500, res.Status) // buried past max depth, no keyword reached, unknown hint defaults server
}

func TestClassify_CyclicPayloadDoesNotHang(t *testing.T) {
	cyclic := map[string]interface{}{"message": "timeout"}
	cyclic["self"] = cyclic
	res := Classify("openai", 0, cyclic)
	assert.Equal(t, 408, res.Status)
}
