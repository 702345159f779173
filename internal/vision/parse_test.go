package vision

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/require"
)

func TestParseMeasureValue(t *testing.T) {
	cases := []struct {
		in   string
		want *int64
	}{
		{"123456", ptr(123456)},
		{"measurement: 123456", ptr(123456)},
		{"  00789\n", ptr(789)},
		{"1015.7 m3", ptr(1015)},
		{"`4321`", ptr(4321)},
		{"no digits here", nil},
		{"99999999999999999999999", nil},
	}
	for _, tc := range cases {
		got := ParseMeasureValue(tc.in)
		if tc.want == nil {
			require.Nil(t, got, tc.in)
			continue
		}
		require.NotNil(t, got, tc.in)
		require.Equal(t, *tc.want, *got, tc.in)
	}
}

func TestFirstText(t *testing.T) {
	require.Equal(t, "", firstText(nil))
	require.Equal(t, "", firstText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: nil},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("42")}}},
		},
	}
	require.Equal(t, "42", firstText(resp))
}

func ptr(v int64) *int64 { return &v }
