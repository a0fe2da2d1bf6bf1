// Package dispatch implements the lightweight classify-and-dispatch path: a
// regex-based task analyzer, concurrent fan-out of subtasks to roles, and an
// aggregator that merges per-role results into one ordered output.
package dispatch

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/hupe1980/agenthive/core"
)

// TaskType is the coarse complexity classification of a request.
type TaskType string

const (
	TaskSimple     TaskType = "simple"
	TaskComplex    TaskType = "complex"
	TaskMultiStage TaskType = "multi_stage"
)

// shortRequestLen is the length under which a low-scoring request counts as
// simple.
const shortRequestLen = 100

// SubTask is one unit of dispatched work, consumed once by the orchestrator.
type SubTask struct {
	Role         core.Role
	Task         string
	Priority     int
	Dependencies []string
	Context      map[string]any
}

// TaskAnalysis is the dispatcher's verdict on a request.
type TaskAnalysis struct {
	Type     TaskType
	Analysis string
	SubTasks []SubTask
}

// intent tags scored against the request text.
const (
	tagSimpleQA      = "simple_qa"
	tagCodeGen       = "code_generation"
	tagBugFix        = "bug_fix"
	tagAlgorithm     = "algorithm"
	tagArchitecture  = "architecture"
	tagFileOperation = "file_operation"
	tagReportWriting = "report_writing"
)

// tagOrder fixes iteration order over the pattern table so analysis text and
// subtask creation are deterministic.
var tagOrder = []string{
	tagSimpleQA, tagCodeGen, tagBugFix, tagAlgorithm,
	tagArchitecture, tagFileOperation, tagReportWriting,
}

var patternTable = map[string][]string{
	tagSimpleQA: {
		`(?i)what is`,
		`(?i)how (do|to|does)`,
		`(?i)\bwhy\b`,
		`(?i)explain`,
		`(?i)can you (check|look)`,
	},
	tagCodeGen: {
		`(?i)write (a|an|some)`,
		`(?i)\bcreate\b`,
		`(?i)\bimplement\b`,
		`(?i)\bgenerate\b`,
		`(?i)\bcode\b`,
	},
	tagBugFix: {
		`(?i)\bbug\b`,
		`(?i)\berror\b`,
		`(?i)not working`,
		`(?i)\bbroken\b`,
		`(?i)\bexception\b`,
		`(?i)\bcrash`,
		`(?i)\bfix\b`,
	},
	tagAlgorithm: {
		`(?i)\balgorithm\b`,
		`(?i)\boptimi[sz]e\b`,
		`(?i)\bcomplexity\b`,
		`(?i)\bperformance\b`,
		`(?i)\bmath\b`,
		`(?i)\bcompute\b`,
	},
	tagArchitecture: {
		`(?i)\barchitecture\b`,
		`(?i)\bdesign\b`,
		`(?i)\bproject\b`,
		`(?i)\bsystem\b`,
		`(?i)\bmodule\b`,
		`(?i)\brefactor`,
	},
	tagFileOperation: {
		`(?i)\bfile\b`,
		`(?i)\bdirectory\b`,
		`(?i)\brename\b`,
		`(?i)\bmove\b`,
		`(?i)\bdelete\b`,
		`(?i)\bmodify\b`,
	},
	tagReportWriting: {
		`(?i)\breport\b`,
		`(?i)\bdocument\b`,
		`(?i)\bsummar(y|ize)`,
		`(?i)\banalysis\b`,
		`(?i)\bproposal\b`,
	},
}

// TaskDispatcher scores requests against a fixed pattern table and maps the
// firing tags to prioritized subtasks. The table is compiled once and never
// mutated.
type TaskDispatcher struct {
	compiled map[string][]*regexp.Regexp
}

// NewTaskDispatcher compiles the pattern table.
func NewTaskDispatcher() *TaskDispatcher {
	compiled := make(map[string][]*regexp.Regexp, len(patternTable))
	for tag, patterns := range patternTable {
		res := make([]*regexp.Regexp, len(patterns))
		for i, p := range patterns {
			res[i] = regexp.MustCompile(p)
		}
		compiled[tag] = res
	}
	return &TaskDispatcher{compiled: compiled}
}

// Analyze classifies the request and, for non-simple requests, derives the
// subtask list.
func (d *TaskDispatcher) Analyze(input string) TaskAnalysis {
	scores := d.classify(input)
	taskType := determineType(scores, input)

	if taskType == TaskSimple {
		return TaskAnalysis{
			Type:     taskType,
			Analysis: "simple question, handled directly by the fast agent",
		}
	}

	return TaskAnalysis{
		Type:     taskType,
		Analysis: describeScores(scores),
		SubTasks: createSubTasks(scores, input),
	}
}

// classify counts how many patterns of each tag match the text.
func (d *TaskDispatcher) classify(text string) map[string]int {
	scores := map[string]int{}
	for tag, patterns := range d.compiled {
		for _, re := range patterns {
			if re.MatchString(text) {
				scores[tag]++
			}
		}
	}
	return scores
}

func determineType(scores map[string]int, text string) TaskType {
	total := 0
	for _, n := range scores {
		total += n
	}

	if total <= 1 && len(text) < shortRequestLen {
		return TaskSimple
	}
	if scores[tagCodeGen] > 0 && scores[tagArchitecture] > 0 {
		return TaskMultiStage
	}
	if total >= 3 {
		return TaskComplex
	}
	if total > 0 {
		return TaskComplex
	}
	return TaskSimple
}

// createSubTasks maps firing tags to roles using a fixed priority table and
// returns them de-duplicated, strongest priority first.
func createSubTasks(scores map[string]int, input string) []SubTask {
	var subtasks []SubTask

	if scores[tagFileOperation] > 0 {
		subtasks = append(subtasks, SubTask{
			Role:     core.RoleStrongest,
			Task:     fmt.Sprintf("Perform the file operations: %s", input),
			Priority: 10,
		})
	}
	if scores[tagBugFix] > 0 {
		subtasks = append(subtasks, SubTask{
			Role:     core.RoleReasoning,
			Task:     fmt.Sprintf("Diagnose and fix the problem: %s", input),
			Priority: 8,
		})
	}
	if scores[tagAlgorithm] > 0 {
		subtasks = append(subtasks, SubTask{
			Role:     core.RoleReasoning,
			Task:     fmt.Sprintf("Solve the algorithm/optimization problem: %s", input),
			Priority: 7,
		})
	}
	if scores[tagCodeGen] > 0 || scores[tagArchitecture] > 0 {
		subtasks = append(subtasks, SubTask{
			Role:     core.RoleBalanced,
			Task:     fmt.Sprintf("Design and implement: %s", input),
			Priority: 5,
		})
	}
	if scores[tagReportWriting] > 0 && !hasRole(subtasks, core.RoleStrongest) {
		subtasks = append(subtasks, SubTask{
			Role:     core.RoleStrongest,
			Task:     fmt.Sprintf("Write the document/report: %s", input),
			Priority: 3,
		})
	}

	if len(subtasks) == 0 {
		subtasks = append(subtasks, SubTask{
			Role:     core.RoleBalanced,
			Task:     input,
			Priority: 5,
		})
	}

	sort.SliceStable(subtasks, func(i, j int) bool {
		return subtasks[i].Priority > subtasks[j].Priority
	})
	return subtasks
}

func hasRole(subtasks []SubTask, role core.Role) bool {
	for _, st := range subtasks {
		if st.Role == role {
			return true
		}
	}
	return false
}

func describeScores(scores map[string]int) string {
	out := "intent scores:"
	for _, tag := range tagOrder {
		if scores[tag] > 0 {
			out += fmt.Sprintf(" %s=%d", tag, scores[tag])
		}
	}
	return out
}
