package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestDecodeMetadata_Empty(t *testing.T) {
	link := SurveyLink{}
	meta := link.DecodeMetadata()

	if meta.OriginalURL != "" || meta.BatchID != "" {
		t.Error("empty metadata should decode to the zero value")
	}
}

func TestDecodeMetadata_Malformed(t *testing.T) {
	link := SurveyLink{Metadata: "{not json"}
	meta := link.DecodeMetadata()

	if meta.OriginalURL != "" {
		t.Error("malformed metadata should degrade to the zero value, not error")
	}
}

func TestDecodeMetadata_KnownFields(t *testing.T) {
	link := SurveyLink{Metadata: `{"originalUrl":"https://x.example.com","batchId":"b1","generationMethod":"batch"}`}
	meta := link.DecodeMetadata()

	if meta.OriginalURL != "https://x.example.com" {
		t.Errorf("OriginalURL = %q", meta.OriginalURL)
	}
	if meta.BatchID != "b1" {
		t.Errorf("BatchID = %q", meta.BatchID)
	}
	if meta.GenerationMethod != "batch" {
		t.Errorf("GenerationMethod = %q", meta.GenerationMethod)
	}
	if len(meta.Extra) != 0 {
		t.Errorf("known keys must not land in Extra, got %v", meta.Extra)
	}
}

func TestDecodeMetadata_UnknownKeysPreserved(t *testing.T) {
	link := SurveyLink{Metadata: `{"originalUrl":"https://x.example.com","vendorScore":0.97,"panelTag":"p1"}`}
	meta := link.DecodeMetadata()

	if len(meta.Extra) != 2 {
		t.Fatalf("Extra has %d keys, expected 2", len(meta.Extra))
	}
	if _, ok := meta.Extra["vendorScore"]; !ok {
		t.Error("unknown key vendorScore should be preserved")
	}
}

func TestSetMetadata_MergePreservesForeignKeys(t *testing.T) {
	link := SurveyLink{Metadata: `{"originalUrl":"https://x.example.com","vendorScore":0.97}`}

	// A flag update must not erase the vendor's key.
	now := time.Now().UTC()
	meta := link.DecodeMetadata()
	meta.FlagReason = "duplicate respondent"
	meta.FlaggedAt = &now
	meta.ReviewStatus = ReviewPending
	link.SetMetadata(meta)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(link.Metadata), &raw); err != nil {
		t.Fatalf("metadata is not valid json: %v", err)
	}
	if _, ok := raw["vendorScore"]; !ok {
		t.Error("foreign key vendorScore was dropped by the merge")
	}
	if _, ok := raw["originalUrl"]; !ok {
		t.Error("originalUrl was dropped by the merge")
	}
	if !strings.Contains(link.Metadata, "duplicate respondent") {
		t.Error("flag reason missing after merge")
	}
}

func TestSetMetadata_RepeatedFlagKeepsLatest(t *testing.T) {
	link := SurveyLink{}

	first := link.DecodeMetadata()
	first.FlagReason = "first reason"
	link.SetMetadata(first)

	second := link.DecodeMetadata()
	second.FlagReason = "second reason"
	link.SetMetadata(second)

	meta := link.DecodeMetadata()
	if meta.FlagReason != "second reason" {
		t.Errorf("FlagReason = %q, expected the latest value", meta.FlagReason)
	}
}

func TestSetMetadata_TypedFieldWinsOverExtra(t *testing.T) {
	link := SurveyLink{}
	meta := LinkMetadata{
		OriginalURL: "https://current.example.com",
		Extra: map[string]json.RawMessage{
			"originalUrl": json.RawMessage(`"https://stale.example.com"`),
		},
	}
	link.SetMetadata(meta)

	decoded := link.DecodeMetadata()
	if decoded.OriginalURL != "https://current.example.com" {
		t.Errorf("typed field should win over a stale Extra entry, got %q", decoded.OriginalURL)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	link := SurveyLink{}
	link.SetMetadata(LinkMetadata{
		OriginalURL:      "https://x.example.com",
		WrapperURL:       "https://sl.example.com/1/abc",
		BatchID:          "b7",
		GeneratedAt:      &now,
		GenerationMethod: "batch",
	})

	meta := link.DecodeMetadata()
	if meta.WrapperURL != "https://sl.example.com/1/abc" {
		t.Errorf("WrapperURL = %q", meta.WrapperURL)
	}
	if meta.GeneratedAt == nil || !meta.GeneratedAt.Equal(now) {
		t.Errorf("GeneratedAt = %v, expected %v", meta.GeneratedAt, now)
	}
}
