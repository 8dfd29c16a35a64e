// Test file for the end-to-end pipeline (runPipeline) using a fake
// vendor client. No cobra globals are touched.
package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/secops-tools/falcon-report-diff/pkg/diff"
	"github.com/secops-tools/falcon-report-diff/pkg/falcon"
	"github.com/secops-tools/falcon-report-diff/pkg/xlsx"
)

type fakeClient struct {
	ids      []string
	queryErr error
	execs    []falcon.Execution
	getErr   error
	payloads map[string][]byte
}

func (f *fakeClient) QueryExecutions(ctx context.Context, reportID string) ([]string, error) {
	return f.ids, f.queryErr
}

func (f *fakeClient) GetExecutions(ctx context.Context, ids []string) ([]falcon.Execution, error) {
	return f.execs, f.getErr
}

func (f *fakeClient) DownloadExecution(ctx context.Context, id string) ([]byte, error) {
	data, ok := f.payloads[id]
	if !ok {
		return nil, errors.New("no payload for " + id)
	}
	return data, nil
}

const csvHeader = "CVE ID,Image repository,Image tag,Image name,Image registry\n"

func TestRunPipelineEndToEnd(t *testing.T) {
	dir := t.TempDir()
	client := &fakeClient{
		ids: []string{"exec-a", "exec-b"},
		execs: []falcon.Execution{
			{ID: "exec-b", ScheduledReportID: "rpt", Status: "DONE", CreatedOn: "2024-01-01T08:00:00.000000Z"},
			{ID: "exec-a", ScheduledReportID: "rpt", Status: "DONE", CreatedOn: "2024-01-02T08:00:00.000000Z"},
		},
		payloads: map[string][]byte{
			// exec-a is newer and introduces CVE-2024-0002
			"exec-a": []byte(csvHeader +
				"CVE-2024-0001,library/nginx,1.25,nginx,docker.io\n" +
				"CVE-2024-0002,library/redis,7.2,redis,docker.io\n"),
			"exec-b": []byte(csvHeader +
				"CVE-2024-0001,library/nginx,1.25,nginx,docker.io\n"),
		},
	}

	if err := runPipeline(context.Background(), client, "rpt", dir); err != nil {
		t.Fatalf("runPipeline() error: %v", err)
	}

	// Both executions materialized
	for _, name := range []string{"exec-a_20240102.xlsx", "exec-b_20240101.xlsx"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected saved workbook %s: %v", name, err)
		}
	}

	// The assessment holds only the finding introduced by the newer run
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var assessment string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "_ImageVulnerabilityAssessment.xlsx") {
			assessment = filepath.Join(dir, e.Name())
		}
	}
	if assessment == "" {
		t.Fatal("no assessment file produced")
	}

	rows, err := xlsx.ReadRows(assessment)
	if err != nil {
		t.Fatalf("failed to read assessment: %v", err)
	}
	want := [][]string{
		diff.IdentityColumns,
		{"CVE-2024-0002", "library/redis", "7.2", "redis", "docker.io"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("assessment mismatch:\ngot  %v\nwant %v", rows, want)
	}
}

func TestRunPipelineSingleExecutionSkipsComparison(t *testing.T) {
	dir := t.TempDir()
	client := &fakeClient{
		ids: []string{"exec-a"},
		execs: []falcon.Execution{
			{ID: "exec-a", Status: "DONE", CreatedOn: "2024-01-02T08:00:00.000000Z"},
		},
		payloads: map[string][]byte{
			"exec-a": []byte(csvHeader + "CVE-2024-0001,library/nginx,1.25,nginx,docker.io\n"),
		},
	}

	if err := runPipeline(context.Background(), client, "rpt", dir); err != nil {
		t.Fatalf("runPipeline() error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), "ImageVulnerabilityAssessment") {
			t.Errorf("assessment produced with only one saved file: %s", e.Name())
		}
	}
}

func TestRunPipelineNoExecutions(t *testing.T) {
	client := &fakeClient{}
	if err := runPipeline(context.Background(), client, "rpt", t.TempDir()); err != nil {
		t.Fatalf("runPipeline() with no executions should succeed, got: %v", err)
	}
}

func TestRunPipelineLookupErrorsAreFatal(t *testing.T) {
	queryBroken := &fakeClient{queryErr: errors.New("status 403")}
	if err := runPipeline(context.Background(), queryBroken, "rpt", t.TempDir()); err == nil {
		t.Error("expected query error to propagate")
	}

	statusBroken := &fakeClient{
		ids:    []string{"exec-a"},
		getErr: errors.New("status 500"),
	}
	if err := runPipeline(context.Background(), statusBroken, "rpt", t.TempDir()); err == nil {
		t.Error("expected status-fetch error to propagate")
	}
}
