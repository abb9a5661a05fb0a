package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"tagbench/internal/dataset"
)

// TrainRecords returns a small labeled training fixture with three tags.
func TrainRecords() []dataset.Record {
	return []dataset.Record{
		{Title: "Transfer learning with transformers", Description: "Using pretrained transformers for text classification.", Tag: "natural-language-processing"},
		{Title: "Object detection with YOLO", Description: "Real-time object detection on video frames.", Tag: "computer-vision"},
		{Title: "Feature stores", Description: "Serving features consistently for training and inference.", Tag: "mlops"},
		{Title: "Named entity recognition", Description: "Tagging people and places in sentences.", Tag: "natural-language-processing"},
		{Title: "Image segmentation", Description: "Pixel level masks with U-Net.", Tag: "computer-vision"},
		{Title: "Model monitoring", Description: "Detecting drift in production models.", Tag: "mlops"},
	}
}

// HoldoutRecords returns a small holdout fixture sharing TrainRecords' tags.
func HoldoutRecords() []dataset.Record {
	return []dataset.Record{
		{Title: "Sentiment analysis", Description: "Classifying reviews with BERT.", Tag: "natural-language-processing"},
		{Title: "Face recognition", Description: "Embedding faces for verification.", Tag: "computer-vision"},
		{Title: "CI for ML", Description: "Testing data and models in pipelines.", Tag: "mlops"},
	}
}

// WriteDataset writes records as CSV to path, creating parent directories.
func WriteDataset(t testing.TB, path string, records []dataset.Record) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := dataset.WriteCSV(f, records); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
