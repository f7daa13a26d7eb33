package crewstore

import (
	"encoding/json"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pimesh/messenger/internal/resultkind"
)

// plannerJSON is the structured shape a planner is encouraged to emit
// inside a fenced ```json block (§4.8, preferred form).
type plannerJSON struct {
	PRDPath string `json:"prdPath"`
	Tasks   []struct {
		ID        string   `json:"id"`
		Title     string   `json:"title"`
		DependsOn []string `json:"dependsOn"`
		Body      string   `json:"body"`
	} `json:"tasks"`
}

// frontMatter is the YAML metadata block a markdown-fallback plan may
// carry, e.g.:
//
//	---
//	prdPath: docs/prd.md
//	---
type frontMatter struct {
	PRDPath string `yaml:"prdPath"`
}

var jsonBlockRe = regexp.MustCompile("(?s)```json\\s*\\n(.*?)\\n```")
var frontMatterRe = regexp.MustCompile(`(?s)\A---\s*\n(.*?)\n---\s*\n?`)
var taskHeadingRe = regexp.MustCompile(`(?m)^##\s+(task-\d+):\s*(.+)$`)
var dependsOnRe = regexp.MustCompile(`(?m)^[Dd]epends[ _]?[Oo]n:\s*(.+)$`)

// ParsePlannerOutput turns a planner's raw output into a Plan and its
// Tasks. It prefers a fenced JSON block; if none is present it falls
// back to a YAML front-matter block plus "## task-N: Title" markdown
// headings, so the planner's prose format can evolve without breaking
// downstream consumers (§4.8).
func ParsePlannerOutput(raw string) (*Plan, []*Task, error) {
	if m := jsonBlockRe.FindStringSubmatch(raw); m != nil {
		return parsePlannerJSON(m[1], raw)
	}
	return parsePlannerMarkdown(raw)
}

func parsePlannerJSON(block, raw string) (*Plan, []*Task, error) {
	var pj plannerJSON
	if err := json.Unmarshal([]byte(block), &pj); err != nil {
		return nil, nil, resultkind.New(resultkind.IOFailure, "parsing planner json block: "+err.Error())
	}
	plan := &Plan{PRDPath: pj.PRDPath, Body: raw}
	tasks := make([]*Task, 0, len(pj.Tasks))
	for _, t := range pj.Tasks {
		tasks = append(tasks, &Task{
			ID:        t.ID,
			Title:     t.Title,
			Status:    StatusTodo,
			DependsOn: t.DependsOn,
			Body:      t.Body,
		})
	}
	return plan, tasks, nil
}

func parsePlannerMarkdown(raw string) (*Plan, []*Task, error) {
	plan := &Plan{Body: raw}
	if m := frontMatterRe.FindStringSubmatch(raw); m != nil {
		var fm frontMatter
		if err := yaml.Unmarshal([]byte(m[1]), &fm); err == nil {
			plan.PRDPath = fm.PRDPath
		}
	}

	headings := taskHeadingRe.FindAllStringSubmatchIndex(raw, -1)
	var tasks []*Task
	for i, loc := range headings {
		id := raw[loc[2]:loc[3]]
		title := strings.TrimSpace(raw[loc[4]:loc[5]])
		bodyStart := loc[1]
		bodyEnd := len(raw)
		if i+1 < len(headings) {
			bodyEnd = headings[i+1][0]
		}
		body := strings.TrimSpace(raw[bodyStart:bodyEnd])

		var deps []string
		if dm := dependsOnRe.FindStringSubmatch(body); dm != nil {
			for _, d := range strings.Split(dm[1], ",") {
				if d = strings.TrimSpace(d); d != "" {
					deps = append(deps, d)
				}
			}
		}

		tasks = append(tasks, &Task{
			ID:        id,
			Title:     title,
			Status:    StatusTodo,
			DependsOn: deps,
			Body:      body,
		})
	}
	return plan, tasks, nil
}
