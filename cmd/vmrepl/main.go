/*
Command vmrepl is an interactive debug console for the VM core: it owns
a *vm.Program, wires itself in as every host.* collaborator, and offers
a handful of `:`-prefixed commands to run the program and inspect its
state afterward (read a line, dispatch, loop until EOF). vmrepl has no
source language of its own to parse — loading a program is the job of
an external front end — so its commands drive a VM that was already
built in Go rather than read from the line itself.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pterm/pterm"

	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"

	"github.com/fuguevm/fuguevm/vm"
	"github.com/fuguevm/fuguevm/vm/tree"
)

func main() {
	initDisplay()
	gtrace.SyntaxTracer = gologadapter.New()
	tlevel := flag.String("trace", "Info", "Trace level [Debug|Info|Error]")
	flag.Parse()
	tracing.Select("vmrepl").SetTraceLevel(tracing.TraceLevelFromString(*tlevel))

	pterm.Info.Println("Welcome to vmrepl")

	rl, err := readline.New("vmrepl> ")
	if err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(3)
	}
	defer rl.Close()

	console := &Console{
		prog: buildDemoProgram(),
		rl:   rl,
	}
	console.prog.Debug = console
	console.prog.Lines = console
	console.prog.Dialog = console
	console.prog.PreExec = func() {
		pterm.Info.Println("pre-execution hook running")
	}

	pterm.Info.Println("Quit with:quit or <ctrl>D. Try:run,:dump,:scope,:pools,:help.")
	console.REPL()
}

// We use pterm for moderately fancy output.
func initDisplay() {
	pterm.Info.Prefix = pterm.Prefix{
		Text:  "  >>",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "  Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

// Console is the REPL's state: the program under inspection and the
// readline instance it both reads commands from and (as the wired-in
// host.LineReader) serves the VM's own blocking line reads through.
type Console struct {
	prog *vm.Program
	rl   *readline.Instance
	ran  bool
}

// WriteDebug implements host.DebugWriter.
func (c *Console) WriteDebug(s string) {
	pterm.Info.Println("debug: " + s)
}

// ReadLine implements host.LineReader: a program that blocks on input
// reads it from the same terminal the REPL's own commands come from.
func (c *Console) ReadLine() (string, error) {
	return c.rl.Readline()
}

// Show implements host.ErrorDialog.
func (c *Console) Show(prologue, message string) {
	pterm.Error.Println(prologue + ": " + message)
}

// REPL runs the read-dispatch-loop until EOF or an explicit quit.
func (c *Console) REPL() {
	for {
		line, err := c.rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			break
		}
		if err != nil {
			pterm.Error.Println(err.Error())
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if quit := c.dispatch(line); quit {
			break
		}
	}
	pterm.Info.Println("Good bye!")
}

func (c *Console) dispatch(line string) (quit bool) {
	switch line {
	case ":quit", ":exit":
		return true
	case ":help":
		c.help()
	case ":run":
		c.run()
	case ":dump":
		c.dump()
	case ":scope":
		c.scope()
	case ":pools":
		c.pools()
	default:
		if rest := strings.TrimPrefix(line, ":tokens "); rest != line {
			c.tokens(rest)
			return false
		}
		if rest := strings.TrimPrefix(line, ":ops "); rest != line {
			c.ops(rest)
			return false
		}
		pterm.Error.Println(fmt.Sprintf("unknown command %q; try:help", line))
	}
	return false
}

// tokens runs the bootstrap lexer (lex.go) over arbitrary text typed
// at the prompt, e.g. `:tokens square(7) + 1`.
func (c *Console) tokens(text string) {
	toks, err := tokenizeLine(text)
	if err != nil {
		pterm.Error.Println(err.Error())
		return
	}
	for _, t := range toks {
		pterm.Info.Println(fmt.Sprintf("%-8s %q (col %d)", t.Class, t.Lexeme, t.Column))
	}
}

func (c *Console) help() {
	pterm.Info.Println(strings.Join([]string{
		":run    execute the loaded program",
		":dump   print the global scope's variable bindings",
		":scope  print the global scope's member declarations",
		":pools  print string/buffer/array pool occupancy",
		":tokens <text>  run the bootstrap lexer over <text>",
		":ops <function>  render a function's operation tree",
		":quit   leave vmrepl",
	}, "\n"))
}

// ops renders a loaded function's operation tree as an indented
// terminal tree, one node per operation token plus its payload — the
// same introspection surface a validator or serializer reads.
func (c *Console) ops(name string) {
	fn, ok := c.prog.Functions[name]
	if !ok {
		pterm.Error.Println(fmt.Sprintf("no function named %q", name))
		return
	}
	ll := leveledOps(fn.Body.Ops, pterm.LeveledList{}, 0)
	pterm.Println(name)
	pterm.DefaultTree.WithRoot(pterm.NewTreeFromLeveledList(ll)).Render()
}

func leveledOps(ops []tree.Operation, ll pterm.LeveledList, level int) pterm.LeveledList {
	for _, op := range ops {
		ll = append(ll, pterm.LeveledListItem{
			Level: level,
			Text:  op.Token() + payloadText(op.Payload()),
		})
		if tr, ok := op.(tree.Traversable); ok {
			ll = leveledOps(tr.Children(), ll, level+1)
		}
	}
	return ll
}

func payloadText(p tree.Payload) string {
	switch p.Kind {
	case tree.IntegerPayload:
		return fmt.Sprintf(" %d", p.Int)
	case tree.RealPayload:
		return fmt.Sprintf(" %g", p.Real)
	case tree.BooleanPayload:
		return fmt.Sprintf(" %t", p.Bool)
	case tree.IdentifierPayload:
		return fmt.Sprintf(" %q", p.Ident)
	case tree.TypeIDPayload:
		return fmt.Sprintf(" type#%d", p.Type)
	case tree.ParamCountPayload:
		return fmt.Sprintf(" /%d", p.Count)
	default:
		return ""
	}
}

func (c *Console) run() {
	result, err := c.prog.Execute()
	c.ran = true
	if err != nil {
		pterm.Error.Println(err.Error())
		return
	}
	pterm.Info.Println("result: " + result.String())
}

func (c *Console) dump() {
	gs := c.prog.GlobalScope()
	if gs == nil {
		pterm.Error.Println("global scope not active yet; run:run first")
		return
	}
	for _, line := range gs.Dump(c.prog.Tuples(), c.prog.Records()) {
		pterm.Info.Println(line)
	}
}

func (c *Console) scope() {
	if c.prog.GlobalScopeDesc == nil {
		pterm.Error.Println("no global scope description loaded")
		return
	}
	for _, m := range c.prog.GlobalScopeDesc.Members {
		pterm.Info.Println(fmt.Sprintf("%s: %s (%s)", m.Name, m.Kind, m.Role))
	}
	if len(c.prog.GlobalScopeDesc.Members) == 0 {
		pterm.Info.Println("(no declared members)")
	}
}

func (c *Console) pools() {
	sc, sb := c.prog.Strings().Stats()
	bc, bb := c.prog.Buffers().Stats()
	ac, ab := c.prog.Arrays().Stats()
	pterm.Info.Println(fmt.Sprintf("strings: %d live, %d bytes", sc, sb))
	pterm.Info.Println(fmt.Sprintf("buffers: %d live, %d bytes", bc, bb))
	pterm.Info.Println(fmt.Sprintf("arrays:  %d live, %d bytes", ac, ab))
}
