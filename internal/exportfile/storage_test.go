package exportfile

import (
	"testing"
)

func TestSplitURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://my-bucket/exports/2024/camt.csv", "my-bucket", "exports/2024/camt.csv", false},
		{"gs://my-bucket/a.csv", "my-bucket", "a.csv", false},
		{"gs://bucket-only", "", "", true},
		{"https://storage.googleapis.com/b/o", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, object, err := splitURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("splitURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
			if bucket != tt.wantBucket || object != tt.wantObject {
				t.Errorf("splitURI(%q) = (%q, %q), want (%q, %q)",
					tt.uri, bucket, object, tt.wantBucket, tt.wantObject)
			}
		})
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"gs://bucket/folder/export.csv", "export.csv"},
		{"gs://bucket/export.csv", "export.csv"},
		{"gs://bucket", "bucket"},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			if got := Filename(tt.uri); got != tt.want {
				t.Errorf("Filename(%q) = %q, want %q", tt.uri, got, tt.want)
			}
		})
	}
}
