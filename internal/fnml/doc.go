// Package fnml evaluates FnO/FNML function executions declared in the
// function-rule table. A Registry binds function IRIs to Go builtins and
// implements term.FunctionEvaluator.
package fnml
