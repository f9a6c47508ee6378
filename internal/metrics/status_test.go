package metrics

import (
	"reflect"
	"testing"
)

func TestFlattenStatusBuckets(t *testing.T) {
	tests := []struct {
		name    string
		buckets map[string]int64
		want    []StatusBucket
	}{
		{
			name:    "nil buckets",
			buckets: nil,
			want:    nil,
		},
		{
			name:    "empty buckets",
			buckets: map[string]int64{},
			want:    nil,
		},
		{
			name:    "single bucket",
			buckets: map[string]int64{"503": 4},
			want: []StatusBucket{
				{Bucket: "503", Label: "HTTP 503 Service Unavailable", Count: 4},
			},
		},
		{
			name: "sorted by count desc then bucket",
			buckets: map[string]int64{
				"timeout": 2,
				"500":     5,
				"404":     2,
			},
			want: []StatusBucket{
				{Bucket: "500", Label: "HTTP 500 Internal Server Error", Count: 5},
				{Bucket: "404", Label: "HTTP 404 Not Found", Count: 2},
				{Bucket: "timeout", Label: "Timeout", Count: 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlattenStatusBuckets(tt.buckets)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FlattenStatusBuckets() = %#v, want %#v", got, tt.want)
			}
		})
	}
}
