package narrative

import "testing"

func TestDecodeRequestByEnvelope(t *testing.T) {
	body := []byte(`{
		"narrative_type": "statistical_test",
		"generation_method": "hybrid",
		"context": {"dataset_name": "trial"},
		"test_name": "Independent T-Test",
		"test_statistic": 3.47,
		"p_value": 0.001,
		"sample_size": 100
	}`)
	req, err := DecodeRequest(body, "")
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	tr, ok := req.(*StatisticalTestRequest)
	if !ok {
		t.Fatalf("got %T", req)
	}
	if tr.TestName != "Independent T-Test" || tr.SampleSize != 100 {
		t.Errorf("fields = %+v", tr)
	}
	if tr.Opts.Method != MethodHybrid {
		t.Errorf("method = %q", tr.Opts.Method)
	}
	if tr.Opts.Context["dataset_name"] != "trial" {
		t.Errorf("context = %v", tr.Opts.Context)
	}
}

func TestDecodeRequestExplicitType(t *testing.T) {
	body := []byte(`{"total_rows": 50, "total_columns": 3}`)
	req, err := DecodeRequest(body, TypeDataSummary)
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	sr, ok := req.(*DataSummaryRequest)
	if !ok {
		t.Fatalf("got %T", req)
	}
	if sr.TotalRows != 50 {
		t.Errorf("total_rows = %d", sr.TotalRows)
	}
}

func TestDecodeRequestVisualization(t *testing.T) {
	body := []byte(`{"narrative_type": "visualization", "chart_type": "scatter", "x_column": "age"}`)
	req, err := DecodeRequest(body, "")
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	vr, ok := req.(*VisualizationRequest)
	if !ok {
		t.Fatalf("got %T", req)
	}
	if vr.ChartType != "scatter" || vr.XColumn != "age" {
		t.Errorf("fields = %+v", vr)
	}
}

func TestDecodeRequestUnsupportedType(t *testing.T) {
	if _, err := DecodeRequest([]byte(`{"narrative_type": "forecast"}`), ""); err == nil {
		t.Error("unsupported type accepted")
	}
	if _, err := DecodeRequest([]byte(`{}`), ""); err == nil {
		t.Error("missing type accepted")
	}
	if _, err := DecodeRequest([]byte(`not json`), ""); err == nil {
		t.Error("invalid JSON accepted")
	}
}
