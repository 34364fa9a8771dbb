package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type recordedCall struct {
	resource string
	key      string
	body     map[string]json.RawMessage
}

func newDispatch(t *testing.T, responses map[string]string) (*httptest.Server, func() []recordedCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recordedCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := recordedCall{resource: r.URL.Query().Get("r"), key: r.URL.Query().Get("k")}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &call.body)
		}
		mu.Lock()
		calls = append(calls, call)
		mu.Unlock()

		resp, ok := responses[call.resource]
		if !ok {
			resp = `{"exception":"NotFound","message":"no such resource"}`
		}
		_, _ = io.WriteString(w, resp)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedCall(nil), calls...)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCategories_NoNetwork(t *testing.T) {
	out, err := run(t, "categories", "--url", "http://127.0.0.1:1/unreachable")
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	var cats map[string]string
	if err := json.Unmarshal([]byte(out), &cats); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if cats["Housing"] != "housing" {
		t.Errorf("categories = %v", cats)
	}
	if !strings.Contains(out, "\n  ") {
		t.Error("expected indented output")
	}
}

func TestDatasets(t *testing.T) {
	srv, calls := newDispatch(t, map[string]string{
		"attributeDatasetSeries": `{"ACS":{"latestEdition":2023},"EASI":{"latestEdition":2024}}`,
	})

	out, err := run(t, "datasets", "--url", srv.URL, "--key", "k1")
	if err != nil {
		t.Fatalf("datasets: %v", err)
	}
	var latest map[string]int
	if err := json.Unmarshal([]byte(out), &latest); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if latest["ACS"] != 2023 || latest["EASI"] != 2024 {
		t.Errorf("latest = %v", latest)
	}
	if c := calls(); len(c) != 1 || c[0].key != "k1" {
		t.Errorf("calls = %+v", c)
	}
}

func TestCensusReleases(t *testing.T) {
	srv, _ := newDispatch(t, map[string]string{
		"institution": `{"countries":{"CA":{"censusReleases":{"2016":{},"2021":{}}}}}`,
	})

	out, err := run(t, "census-releases", "--url", srv.URL)
	if err != nil {
		t.Fatalf("census-releases: %v", err)
	}
	if !strings.Contains(out, `"CA": 2021`) {
		t.Errorf("output = %s", out)
	}
}

func TestAttributes_Flags(t *testing.T) {
	srv, calls := newDispatch(t, map[string]string{
		"institution": `{"countries":{"US":{"censusReleases":{"2020":{}}}}}`,
		"attributes":  `{"hits":[{"attribute":"VALUE0","name":"Median Income"}]}`,
	})

	out, err := run(t, "attributes", "income", "--url", srv.URL,
		"--year", "2020", "--limit", "3", "--exact", "--country", "US")
	if err != nil {
		t.Fatalf("attributes: %v", err)
	}
	if !strings.Contains(out, "VALUE0") {
		t.Errorf("output = %s", out)
	}

	var attrCall *recordedCall
	for _, c := range calls() {
		if c.resource == "attributeDatasetSeries" {
			t.Error("--year must skip the dataset fetch")
		}
		if c.resource == "attributes" {
			attrCall = &c
		}
	}
	if attrCall == nil {
		t.Fatal("no attributes call")
	}
	if got := string(attrCall.body["slice"]); got != "[0,3]" {
		t.Errorf("slice = %s", got)
	}
	where := string(attrCall.body["where"])
	for _, want := range []string{`["=","name","income"]`, `["=","year",2020]`, `["=","country","US"]`} {
		if !strings.Contains(where, want) {
			t.Errorf("where %s missing %s", where, want)
		}
	}
}

func TestLocations(t *testing.T) {
	srv, calls := newDispatch(t, map[string]string{
		"data/locations2": `[{"location":"48453","name":"Travis County"}]`,
	})

	out, err := run(t, "locations", "Trav", "--url", srv.URL, "--unit", "county")
	if err != nil {
		t.Fatalf("locations: %v", err)
	}
	if !strings.Contains(out, `"name": "Travis County"`) {
		t.Errorf("output = %s", out)
	}

	c := calls()
	if len(c) != 1 {
		t.Fatalf("calls = %d, want 1", len(c))
	}
	want := `["and",["startswith",{"attribute":"name"},"Trav"],["=",{"attribute":"geographic_unit"},"county"]]`
	if got := string(c[0].body["where"]); got != want {
		t.Errorf("where = %s\nwant %s", got, want)
	}
}

func TestData(t *testing.T) {
	srv, calls := newDispatch(t, map[string]string{
		"data/locations2": `[{"VALUE0":51000}]`,
	})

	out, err := run(t, "data", "VALUE0", "VALUE1", "--url", srv.URL,
		"--where", `["=",{"attribute":"country"},"US"]`, "--end", "50")
	if err != nil {
		t.Fatalf("data: %v", err)
	}
	if !strings.Contains(out, "51000") {
		t.Errorf("output = %s", out)
	}

	body := calls()[0].body
	if got := string(body["select"]); got != `["VALUE0","VALUE1"]` {
		t.Errorf("select = %s", got)
	}
	if got := string(body["slice"]); got != `[0,50]` {
		t.Errorf("slice = %s", got)
	}
	if _, ok := body["sort"]; ok {
		t.Error("sort must be omitted when not given")
	}
}

func TestData_BadFilter(t *testing.T) {
	_, err := run(t, "data", "VALUE0", "--url", "http://127.0.0.1:1", "--where", `["not"]`)
	if err == nil || !strings.Contains(err.Error(), "--where") {
		t.Fatalf("err = %v, want --where error", err)
	}
	if _, err := run(t, "data", "VALUE0"); err == nil {
		t.Error("missing --where must fail")
	}
}

func TestRemoteErrorFails(t *testing.T) {
	srv, _ := newDispatch(t, map[string]string{
		"attributeDatasetSeries": `{"exception":"AuthException","message":"invalid key"}`,
	})

	_, err := run(t, "datasets", "--url", srv.URL)
	if err == nil || !strings.Contains(err.Error(), "invalid key") {
		t.Fatalf("err = %v, want remote message", err)
	}
}

func TestArgsValidation(t *testing.T) {
	if _, err := run(t, "attributes"); err == nil {
		t.Error("attributes without a name must fail")
	}
	if _, err := run(t, "locations", "a", "b"); err == nil {
		t.Error("locations with two names must fail")
	}
}

func TestVersionFlag(t *testing.T) {
	out, err := run(t, "--version")
	if err != nil {
		t.Fatalf("--version: %v", err)
	}
	if !strings.Contains(out, "dev") {
		t.Errorf("version output = %q", out)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := run(t, "categories", "--log-level", "loud")
	if err == nil || !strings.Contains(err.Error(), "invalid log level") {
		t.Fatalf("err = %v, want log level error", err)
	}
}

func TestDebugLogLevel(t *testing.T) {
	srv, _ := newDispatch(t, map[string]string{
		"attributeDatasetSeries": `{"ACS":{"latestEdition":2023}}`,
	})

	out, err := run(t, "datasets", "--url", srv.URL, "--log-level", "debug")
	if err != nil {
		t.Fatalf("datasets: %v", err)
	}
	if !strings.Contains(out, `"ACS": 2023`) {
		t.Errorf("output = %q", out)
	}
}
