package policy

import (
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"go.trai.ch/zerr"
	"notashelf.dev/flakecheck/internal/flake"
)

// Variables available to a condition.
const (
	KeyGitRef        = "gitRef"
	KeyNumDaysOld    = "numDaysOld"
	KeyOwner         = "owner"
	KeySupportedRefs = "supportedRefs"
)

// Condition is a compiled CEL condition.
type Condition struct {
	source  string
	program cel.Program
}

// CompileCondition parses and type-checks a CEL expression over the
// dependency variables.
func CompileCondition(source string) (*Condition, error) {
	env, err := cel.NewEnv(
		cel.Variable(KeyGitRef, cel.DynType),
		cel.Variable(KeyNumDaysOld, cel.IntType),
		cel.Variable(KeyOwner, cel.StringType),
		cel.Variable(KeySupportedRefs, cel.ListType(cel.StringType)),
	)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create CEL environment")
	}

	ast, iss := env.Compile(source)
	if iss.Err() != nil {
		return nil, zerr.With(zerr.Wrap(ErrConditionCompile, iss.Err().Error()), "condition", source)
	}

	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		err := zerr.Wrap(ErrNonBooleanCondition, "condition returns a "+out.String())
		return nil, zerr.With(zerr.With(err, "condition", source), "type", out.String())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(ErrConditionCompile, err.Error()), "condition", source)
	}

	return &Condition{source: source, program: program}, nil
}

func (c *Condition) String() string {
	return c.source
}

// Holds evaluates the condition for one dependency, measuring its age at now.
func (c *Condition) Holds(dep Dependency, now time.Time, allowedRefs []string) (bool, error) {
	out, _, err := c.program.Eval(activation(dep, now, allowedRefs))
	if err != nil {
		err = zerr.With(zerr.Wrap(ErrConditionRuntime, err.Error()), "input", dep.Name)
		return false, zerr.With(err, "condition", c.source)
	}

	result, ok := out.(types.Bool)
	if !ok {
		return false, nonBoolean(out, dep.Name)
	}
	return bool(result), nil
}

// EvaluateCondition checks every selected dependency against a CEL
// condition and reports a violation for each one it does not hold for. Any
// compile or evaluation failure aborts the whole run.
func EvaluateCondition(roots map[string]flake.Node, cfg Config, source string, allowedRefs []string) ([]Issue, error) {
	condition, err := CompileCondition(source)
	if err != nil {
		return nil, err
	}

	deps, err := Select(roots, cfg)
	if err != nil {
		return nil, err
	}

	now := cfg.now()

	var issues []Issue
	for _, dep := range deps {
		holds, err := condition.Holds(dep, now, allowedRefs)
		if err != nil {
			return nil, err
		}
		if !holds {
			issues = append(issues, Violation(dep.Name))
		}
	}
	return issues, nil
}

func activation(dep Dependency, now time.Time, allowedRefs []string) map[string]any {
	var gitRef any = types.NullValue
	if dep.Ref != nil {
		gitRef = *dep.Ref
	}

	var numDaysOld int64
	if dep.LastModified != nil {
		numDaysOld = NumDaysOld(now.Unix(), *dep.LastModified)
	}

	owner := ""
	if dep.Owner != nil {
		owner = *dep.Owner
	}

	refs := allowedRefs
	if refs == nil {
		refs = []string{}
	}

	return map[string]any{
		KeyGitRef:        gitRef,
		KeyNumDaysOld:    numDaysOld,
		KeyOwner:         owner,
		KeySupportedRefs: refs,
	}
}

func nonBoolean(out ref.Val, input string) error {
	typeName := out.Type().TypeName()
	err := zerr.Wrap(ErrNonBooleanCondition, "condition returned a "+typeName)
	return zerr.With(zerr.With(err, "type", typeName), "input", input)
}
