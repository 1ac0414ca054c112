package finding

import (
	"errors"
	"testing"
)

func TestParse_Ruff(t *testing.T) {
	t.Parallel()

	out := []byte(`[
  {"code":"F401","message":"'os' imported but unused","filename":"/repo/src/app.py",
   "location":{"row":1,"column":8},"end_location":{"row":1,"column":10}},
  {"code":"B006","message":"Do not use mutable data structures for argument defaults","filename":"/repo/src/util.py",
   "location":{"row":4,"column":15},"end_location":{"row":4,"column":17}}
]`)

	got, err := Parse(FormatRuffJSON, "ruff", out)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Severity != SeverityError || got[0].Rule != "F401" || got[0].Line != 1 || got[0].Column != 8 {
		t.Errorf("first finding = %+v", got[0])
	}
	if got[1].Severity != SeverityWarning {
		t.Errorf("B006 severity = %s, want warning", got[1].Severity)
	}
	if got[0].Tool != "ruff" {
		t.Errorf("Tool = %q, want ruff", got[0].Tool)
	}

	Relativize(got, "/repo")
	if got[0].File != "src/app.py" {
		t.Errorf("relativized file = %q", got[0].File)
	}
}

func TestParse_RuffEmptyAndInvalid(t *testing.T) {
	t.Parallel()

	got, err := Parse(FormatRuffJSON, "ruff", nil)
	if err != nil || len(got) != 0 {
		t.Errorf("empty output: got %v, %v", got, err)
	}
	if _, err := Parse(FormatRuffJSON, "ruff", []byte("[{")); err == nil {
		t.Error("expected error for truncated json")
	}
}

func TestParse_Mypy(t *testing.T) {
	t.Parallel()

	out := []byte(`src/app.py:10:5: error: Incompatible types in assignment (expression has type "str", variable has type "int")  [assignment]
src/app.py:11: note: See https://mypy.readthedocs.io
Found 1 error in 1 file (checked 3 source files)
`)
	got, err := Parse(FormatMypy, "mypy", out)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}
	if got[0].Rule != "assignment" || got[0].Column != 5 || got[0].Severity != SeverityError {
		t.Errorf("first finding = %+v", got[0])
	}
	if got[1].Severity != SeverityInfo || got[1].Column != 0 {
		t.Errorf("note finding = %+v", got[1])
	}
}

func TestParse_Bandit(t *testing.T) {
	t.Parallel()

	out := []byte(`{"errors":[],"results":[
 {"filename":"src/db.py","line_number":7,"col_offset":4,"line_range":[7,9],
  "issue_severity":"HIGH","issue_confidence":"MEDIUM","issue_text":"Possible SQL injection",
  "test_id":"B608","test_name":"hardcoded_sql_expressions"},
 {"filename":"src/db.py","line_number":2,"col_offset":0,"line_range":[2],
  "issue_severity":"LOW","issue_confidence":"HIGH","issue_text":"Consider possible security implications",
  "test_id":"B404","test_name":"blacklist"}
]}`)
	got, err := Parse(FormatBanditJSON, "bandit", out)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Severity != SeverityError || got[0].EndLine != 9 || got[0].Column != 5 {
		t.Errorf("first finding = %+v", got[0])
	}
	if got[1].Severity != SeverityInfo {
		t.Errorf("LOW severity = %s, want info", got[1].Severity)
	}
}

func TestParse_BlackAndIsort(t *testing.T) {
	t.Parallel()

	black := []byte("would reformat src/app.py\nerror: cannot format src/bad.py: Cannot parse: 1:4\n\nOh no!\n2 files would be reformatted.\n")
	got, err := Parse(FormatBlack, "black", black)
	if err != nil {
		t.Fatalf("Parse(black) error = %v", err)
	}
	if len(got) != 2 || got[0].File != "src/app.py" || got[1].Severity != SeverityError {
		t.Errorf("black findings = %+v", got)
	}

	isort := []byte("ERROR: /repo/src/app.py Imports are incorrectly sorted and/or formatted.\n")
	got, err = Parse(FormatIsort, "isort", isort)
	if err != nil {
		t.Fatalf("Parse(isort) error = %v", err)
	}
	if len(got) != 1 || got[0].File != "/repo/src/app.py" {
		t.Errorf("isort findings = %+v", got)
	}
}

func TestParse_PipAudit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		out  string
	}{
		{
			name: "object form",
			out:  `{"dependencies":[{"name":"jinja2","version":"2.11.0","vulns":[{"id":"PYSEC-2021-66","fix_versions":["2.11.3"]}]},{"name":"six","version":"1.16.0","vulns":[]}],"fixes":[]}`,
		},
		{
			name: "array form",
			out:  `[{"name":"jinja2","version":"2.11.0","vulns":[{"id":"PYSEC-2021-66","fix_versions":["2.11.3"]}]}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(FormatPipAuditJSON, "pip-audit", []byte(tt.out))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("len = %d, want 1", len(got))
			}
			if got[0].Rule != "PYSEC-2021-66" || got[0].Located() {
				t.Errorf("finding = %+v", got[0])
			}
		})
	}
}

func TestParse_DetectSecrets(t *testing.T) {
	t.Parallel()

	out := []byte(`{"version":"1.4.0","results":{"b.py":[{"type":"Secret Keyword","line_number":3}],"a.py":[{"type":"AWS Access Key","line_number":1}]}}`)
	got, err := Parse(FormatDetectSecrets, "detect-secrets", out)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(got) != 2 || got[0].File != "a.py" || got[1].File != "b.py" {
		t.Errorf("findings = %+v", got)
	}
}

func TestParse_Generic(t *testing.T) {
	t.Parallel()

	out := []byte("src/keys.py:12:5: error[aws-access-key]: AWS access key id\n./notes.py:3: something odd\nnot a finding\n")
	got, err := Parse(FormatText, "secrets", out)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}
	want := Finding{Tool: "secrets", File: "src/keys.py", Line: 12, Column: 5, Severity: SeverityError, Rule: "aws-access-key", Message: "AWS access key id"}
	if got[0] != want {
		t.Errorf("got %+v, want %+v", got[0], want)
	}
	if got[1].File != "notes.py" || got[1].Severity != SeverityWarning {
		t.Errorf("second finding = %+v", got[1])
	}
}

func TestParse_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := Parse("sarif", "x", nil)
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("err = %v, want ErrUnknownFormat", err)
	}
}

func TestFilterCountSort(t *testing.T) {
	t.Parallel()

	fs := []Finding{
		{File: "b.py", Line: 2, Severity: SeverityInfo},
		{File: "a.py", Line: 9, Severity: SeverityError},
		{File: "a.py", Line: 1, Severity: SeverityWarning},
	}

	c := Count(fs)
	if c.Errors != 1 || c.Warnings != 1 || c.Infos != 1 || c.Total() != 3 {
		t.Errorf("Count() = %+v", c)
	}

	if got := Filter(fs, SeverityWarning); len(got) != 2 {
		t.Errorf("Filter(warning) len = %d, want 2", len(got))
	}

	Sort(fs)
	if fs[0].File != "a.py" || fs[0].Line != 1 || fs[2].File != "b.py" {
		t.Errorf("Sort() order = %+v", fs)
	}
}

func TestFinding_String(t *testing.T) {
	t.Parallel()

	f := Finding{Tool: "ruff", File: "a.py", Line: 3, Column: 1, Severity: SeverityError, Rule: "F401", Message: "unused"}
	if got, want := f.String(), "a.py:3:1: error[F401]: unused (ruff)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
