package crewstore

import "testing"

func TestParsePlannerOutputPrefersJSON(t *testing.T) {
	raw := "Plan notes.\n```json\n{\"prdPath\":\"docs/prd.md\",\"tasks\":[{\"id\":\"task-1\",\"title\":\"Build\",\"dependsOn\":[]}]}\n```\n"
	plan, tasks, err := ParsePlannerOutput(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if plan.PRDPath != "docs/prd.md" {
		t.Fatalf("expected prdPath from json block, got %q", plan.PRDPath)
	}
	if len(tasks) != 1 || tasks[0].ID != "task-1" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestParsePlannerOutputMarkdownFallback(t *testing.T) {
	raw := "---\nprdPath: docs/prd.md\n---\n\n## task-1: Build the thing\nDescription of task 1.\n\n## task-2: Wire it up\nDepends On: task-1\nDescription of task 2.\n"
	plan, tasks, err := ParsePlannerOutput(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if plan.PRDPath != "docs/prd.md" {
		t.Fatalf("expected front-matter prdPath, got %q", plan.PRDPath)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "task-1" || tasks[0].Title != "Build the thing" {
		t.Fatalf("unexpected task 1: %+v", tasks[0])
	}
	if tasks[1].ID != "task-2" || len(tasks[1].DependsOn) != 1 || tasks[1].DependsOn[0] != "task-1" {
		t.Fatalf("unexpected task 2: %+v", tasks[1])
	}
}
