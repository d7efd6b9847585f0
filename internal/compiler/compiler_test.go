package compiler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/me/argowf/pkg/argo"
	"github.com/me/argowf/pkg/cwl"
)

func waterBodies() cwl.Workflow {
	return cwl.Workflow{
		Raw:        `{"cwlVersion": "v1.0", "$graph": [{"class": "Workflow", "id": "water-bodies", "doc": "it's \"quoted\""}]}`,
		Entrypoint: "water-bodies",
		Label:      "Water bodies detection",
		Doc:        "Water bodies detection based on NDWI and otsu threshold",
		Version:    "1.4.1",
	}
}

func waterBodiesOptions() Options {
	opts := DefaultOptions()
	opts.Name = "water-bodies-1234"
	opts.Namespace = "ns1"
	opts.Entrypoint = "water-bodies"
	opts.SemaphoreConfigMap = "semaphore-water-bodies"
	opts.Parameters = map[string]any{
		"aoi":        "-121.399,39.834,-120.74,40.472",
		"bands":      []string{"green", "nir"},
		"epsg":       "EPSG:4326",
		"stac_items": []string{"https://earth-search.aws.element84.com/v1/collections/sentinel-2-l2a/items/S2A_10TFK_20210708_0_L2A"},
	}
	return opts
}

func compileWaterBodies(t *testing.T) *argo.Workflow {
	t.Helper()
	wf, err := Compile(waterBodies(), waterBodiesOptions())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return wf
}

func templateByName(t *testing.T, wf *argo.Workflow, name string) argo.Template {
	t.Helper()
	for _, tmpl := range wf.Spec.Templates {
		if tmpl.Name == name {
			return tmpl
		}
	}
	t.Fatalf("template %q not found", name)
	return argo.Template{}
}

func TestCompile_AnnotationsUnderBothNamespaces(t *testing.T) {
	tests := []struct {
		label, doc, version string
	}{
		{"Water bodies detection", "NDWI and otsu", "1.4.1"},
		{"", "", ""},
		{"Ünïcode", "multi\nline", "0.0.1-rc1"},
	}
	for _, tt := range tests {
		ref := waterBodies()
		ref.Label, ref.Doc, ref.Version = tt.label, tt.doc, tt.version

		wf, err := Compile(ref, waterBodiesOptions())
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		ann := wf.Metadata.Annotations
		checks := map[string]string{
			AnnotationTitle:        tt.label,
			AnnotationEOAPTitle:    tt.label,
			AnnotationDescription:  tt.doc,
			AnnotationEOAPAbstract: tt.doc,
			AnnotationEOAPVersion:  tt.version,
			AnnotationVersion:      ">= v3.3.0",
		}
		for key, want := range checks {
			if got, ok := ann[key]; !ok || got != want {
				t.Errorf("annotation %s = %q (present %v), want %q", key, got, ok, want)
			}
		}
	}
}

func TestCompile_TwoTemplates(t *testing.T) {
	wf := compileWaterBodies(t)

	if len(wf.Spec.Templates) != 2 {
		t.Fatalf("templates = %d, want 2", len(wf.Spec.Templates))
	}
	if wf.Spec.Entrypoint != "water-bodies" {
		t.Errorf("entrypoint = %q", wf.Spec.Entrypoint)
	}

	entry := templateByName(t, wf, "water-bodies")
	if !entry.IsSteps() || len(entry.Steps) != 2 {
		t.Fatalf("entrypoint stages = %d, want 2", len(entry.Steps))
	}
	if entry.Steps[0][0].Name != PrepareStep || entry.Steps[1][0].Name != RunnerStep {
		t.Errorf("stage order = %s, %s", entry.Steps[0][0].Name, entry.Steps[1][0].Name)
	}

	prepare := templateByName(t, wf, PrepareStep)
	if prepare.Script == nil || prepare.IsSteps() {
		t.Fatal("prepare is not a script template")
	}
	if prepare.Script.Image != "docker.io/library/prepare:0.1" {
		t.Errorf("prepare image = %q", prepare.Script.Image)
	}
	if prepare.Script.Resources.Requests["memory"] != "1Gi" || prepare.Script.Resources.Requests["cpu"] != "1" {
		t.Errorf("prepare requests = %v", prepare.Script.Resources.Requests)
	}
}

func TestCompile_ReexportedOutputsReferenceRunner(t *testing.T) {
	wf := compileWaterBodies(t)
	entry := templateByName(t, wf, "water-bodies")

	if len(entry.Outputs.Parameters) != 4 {
		t.Fatalf("output parameters = %d, want 4", len(entry.Outputs.Parameters))
	}
	if len(entry.Outputs.Artifacts) != 4 {
		t.Fatalf("output artifacts = %d, want 4", len(entry.Outputs.Artifacts))
	}

	ref := "steps['" + RunnerStep + "']"
	for i, p := range entry.Outputs.Parameters {
		if p.Name != OutputParameters[i] {
			t.Errorf("parameter %d = %q, want %q", i, p.Name, OutputParameters[i])
		}
		if p.ValueFrom == nil || !strings.Contains(p.ValueFrom.Expression, ref) {
			t.Errorf("parameter %s expression = %+v", p.Name, p.ValueFrom)
		}
	}
	for i, a := range entry.Outputs.Artifacts {
		if a.Name != OutputArtifacts[i] {
			t.Errorf("artifact %d = %q, want %q", i, a.Name, OutputArtifacts[i])
		}
		if !strings.Contains(a.FromExpression, ref) {
			t.Errorf("artifact %s expression = %q", a.Name, a.FromExpression)
		}
	}
	if got := entry.Outputs.Parameters[0].ValueFrom.Expression; got != "steps['argo-cwl'].outputs.parameters['results']" {
		t.Errorf("results expression = %q", got)
	}
}

func TestCompile_RunnerStepArguments(t *testing.T) {
	wf := compileWaterBodies(t)
	entry := templateByName(t, wf, "water-bodies")
	runner := entry.Steps[1][0]

	if runner.TemplateRef == nil || runner.TemplateRef.Name != "argo-cwl-runner" || runner.TemplateRef.Template != "calrissian-runner" {
		t.Fatalf("templateRef = %+v", runner.TemplateRef)
	}

	args := map[string]string{}
	for _, p := range runner.Arguments.Parameters {
		args[p.Name] = *p.Value
	}
	want := map[string]string{
		"entry_point": "water-bodies",
		"max_ram":     "4Gi",
		"max_cores":   "4",
		"parameters":  "{{ steps.prepare.outputs.parameters.inputs }}",
		"cwl":         "{{ steps.prepare.outputs.parameters.workflow }}",
	}
	for k, v := range want {
		if args[k] != v {
			t.Errorf("argument %s = %q, want %q", k, args[k], v)
		}
	}
}

func TestCompile_PrepareOutputsAreFilePaths(t *testing.T) {
	wf := compileWaterBodies(t)
	prepare := templateByName(t, wf, PrepareStep)

	paths := map[string]string{}
	for _, p := range prepare.Outputs.Parameters {
		if p.ValueFrom == nil || p.ValueFrom.Expression != "" {
			t.Errorf("parameter %s valueFrom = %+v", p.Name, p.ValueFrom)
			continue
		}
		paths[p.Name] = p.ValueFrom.Path
	}
	if paths[InputsParam] != ParametersPath || paths[WorkflowParam] != WorkflowPath {
		t.Errorf("output paths = %v", paths)
	}
}

func TestCompile_TopLevelInputs(t *testing.T) {
	wf := compileWaterBodies(t)

	params := wf.Spec.Arguments.Parameters
	if len(params) != 1 || params[0].Name != "inputs" {
		t.Fatalf("arguments = %+v", params)
	}

	var decoded map[string]map[string]any
	if err := json.Unmarshal([]byte(*params[0].Value), &decoded); err != nil {
		t.Fatalf("inputs argument is not JSON: %v", err)
	}
	inner := decoded["inputs"]
	if inner["epsg"] != "EPSG:4326" {
		t.Errorf("epsg = %v", inner["epsg"])
	}
	if bands, _ := inner["bands"].([]any); len(bands) != 2 {
		t.Errorf("bands = %v", inner["bands"])
	}
}

func TestCompile_VolumesAndSynchronization(t *testing.T) {
	wf := compileWaterBodies(t)

	if len(wf.Spec.VolumeClaimTemplates) != 1 {
		t.Fatalf("claim templates = %d", len(wf.Spec.VolumeClaimTemplates))
	}
	pvc := wf.Spec.VolumeClaimTemplates[0]
	if pvc.Metadata.Name != WorkdirClaim || pvc.Spec.StorageClassName != "standard" || pvc.Spec.Resources.Requests["storage"] != "10Gi" {
		t.Errorf("claim template = %+v", pvc)
	}

	if len(wf.Spec.Volumes) != 1 || wf.Spec.Volumes[0].Secret == nil || wf.Spec.Volumes[0].Secret.SecretName != UserSettingsName {
		t.Errorf("volumes = %+v", wf.Spec.Volumes)
	}

	sync := wf.Spec.Synchronization
	if sync == nil || sync.Semaphore == nil || sync.Semaphore.ConfigMapKeyRef == nil {
		t.Fatal("semaphore not attached")
	}
	if ref := sync.Semaphore.ConfigMapKeyRef; ref.Name != "semaphore-water-bodies" || ref.Key != "workflow" {
		t.Errorf("configMapKeyRef = %+v", ref)
	}
}

func TestCompile_NoSemaphore(t *testing.T) {
	opts := waterBodiesOptions()
	opts.SemaphoreConfigMap = ""
	if _, err := Compile(waterBodies(), opts); !errors.Is(err, ErrNoSemaphore) {
		t.Fatalf("err = %v, want ErrNoSemaphore", err)
	}
}

func TestCompile_EntrypointFromWorkflow(t *testing.T) {
	opts := waterBodiesOptions()
	opts.Entrypoint = ""
	wf, err := Compile(waterBodies(), opts)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if wf.Spec.Entrypoint != "water-bodies" {
		t.Errorf("entrypoint = %q", wf.Spec.Entrypoint)
	}
}

func TestCompile_ResourceOverrides(t *testing.T) {
	opts := waterBodiesOptions()
	opts.MaxCores = 8
	opts.MaxRAM = "16Gi"
	opts.VolumeSize = "50Gi"
	opts.StorageClass = "fast"
	opts.ServiceAccountName = "argo"

	wf, err := Compile(waterBodies(), opts)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if wf.Spec.ServiceAccountName != "argo" {
		t.Errorf("serviceAccountName = %q", wf.Spec.ServiceAccountName)
	}
	pvc := wf.Spec.VolumeClaimTemplates[0]
	if pvc.Spec.StorageClassName != "fast" || pvc.Spec.Resources.Requests["storage"] != "50Gi" {
		t.Errorf("claim template = %+v", pvc.Spec)
	}
	runner := templateByName(t, wf, "water-bodies").Steps[1][0]
	for _, p := range runner.Arguments.Parameters {
		switch p.Name {
		case "max_cores":
			if *p.Value != "8" {
				t.Errorf("max_cores = %s", *p.Value)
			}
		case "max_ram":
			if *p.Value != "16Gi" {
				t.Errorf("max_ram = %s", *p.Value)
			}
		}
	}
}

func TestCompile_JSONHasNoEmptySections(t *testing.T) {
	wf := compileWaterBodies(t)
	data, err := json.Marshal(wf)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, empty := range []string{`"inputs":{}`, `"outputs":{}`, `"arguments":{}`, `"value":null`} {
		if strings.Contains(string(data), empty) {
			t.Errorf("serialized workflow contains %s", empty)
		}
	}
}

func TestPrepareScript_EmbedsDocument(t *testing.T) {
	raw := waterBodies().Raw
	script := PrepareScript(raw)

	m := regexp.MustCompile(`b64decode\("([A-Za-z0-9+/=]+)"\)`).FindStringSubmatch(script)
	if m == nil {
		t.Fatalf("no embedded document in script:\n%s", script)
	}
	decoded, err := base64.StdEncoding.DecodeString(m[1])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(decoded) != raw {
		t.Errorf("decoded document = %s, want %s", decoded, raw)
	}

	for _, want := range []string{
		`json.loads(os.environ["INPUTS"])`,
		`open("/tmp/cwl_workflow.json", "w")`,
		`open("/tmp/cwl_parameters.json", "w")`,
		`parameters.get("inputs")`,
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %s", want)
		}
	}
}

func TestPrepareTemplate_InputsFromEnvironment(t *testing.T) {
	wf := compileWaterBodies(t)
	script := templateByName(t, wf, PrepareStep).Script
	if script == nil {
		t.Fatal("prepare has no script")
	}

	if len(script.Env) != 1 {
		t.Fatalf("env = %+v, want one entry", script.Env)
	}
	if got := script.Env[0]; got.Name != "INPUTS" || got.Value != "{{inputs.parameters.inputs}}" {
		t.Errorf("env = %+v", got)
	}

	// The controller substitutes placeholders across the template, so the
	// source must not carry any: a value with python quoting would end up
	// inside the script.
	hostile := `{"inputs": {"aoi": "x'''y", "bands": "\"b\\"}}`
	rendered := strings.ReplaceAll(script.Source, "{{inputs.parameters.inputs}}", hostile)
	if rendered != script.Source || strings.Contains(script.Source, "{{") {
		t.Errorf("script source carries a placeholder:\n%s", script.Source)
	}
}
