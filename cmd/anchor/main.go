// Command anchor is the compiler's command-line surface: build, run,
// lsp, lexer, ast. A bare os.Args[1] switch dispatches into
// per-subcommand functions. build, run and lsp each parse their own
// flag.FlagSet with a -verbose flag, logging progress to stderr when set;
// lexer and ast take a bare file argument and have no flags.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/anchorlang/anchor/internal/arena"
	"github.com/anchorlang/anchor/internal/ast"
	"github.com/anchorlang/anchor/internal/diagnostics"
	"github.com/anchorlang/anchor/internal/driver"
	"github.com/anchorlang/anchor/internal/lexer"
	"github.com/anchorlang/anchor/internal/lsp"
	"github.com/anchorlang/anchor/internal/parser"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]
	switch command {
	case "build":
		buildCommand(args)
	case "run":
		runCommand(args)
	case "lsp":
		lspCommand(args)
	case "lexer":
		lexerCommand(args)
	case "ast":
		astCommand(args)
	default:
		fmt.Fprintf(os.Stderr, "anchor: unknown command %q\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "anchor - a small statically-typed systems language\n\n")
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  anchor build [dir] [-verbose]\n")
	fmt.Fprintf(os.Stderr, "  anchor run <file> [-verbose]\n")
	fmt.Fprintf(os.Stderr, "  anchor lsp [dir] [-verbose]\n")
	fmt.Fprintf(os.Stderr, "  anchor lexer <file>\n")
	fmt.Fprintf(os.Stderr, "  anchor ast <file>\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  build  Read <dir>/anchor and compile the package into <dir>/build\n")
	fmt.Fprintf(os.Stderr, "  run    Compile a single file and execute the resulting binary\n")
	fmt.Fprintf(os.Stderr, "  lsp    Enter the editor-protocol server loop on stdin/stdout\n")
	fmt.Fprintf(os.Stderr, "  lexer  Print the token stream for a single file\n")
	fmt.Fprintf(os.Stderr, "  ast    Print the parsed AST for a single file\n")
}

// printDiagnostics renders every entry in sink to stderr, in push order.
func printDiagnostics(sink *diagnostics.Sink) {
	for _, d := range sink.Entries() {
		fmt.Fprintln(os.Stderr, d.RenderText(""))
	}
}

func buildCommand(args []string) {
	flags := flag.NewFlagSet("build", flag.ExitOnError)
	verbose := flags.Bool("verbose", false, "enable verbose output")
	flags.Parse(args)

	dir := "."
	if flags.NArg() > 0 {
		dir = flags.Arg(0)
	}

	res, err := driver.Build(dir, *verbose)
	if res != nil {
		printDiagnostics(res.Sink)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "anchor: %v\n", err)
		if res != nil && res.CCOutput != "" {
			fmt.Fprint(os.Stderr, res.CCOutput)
		}
		os.Exit(1)
	}
	if res == nil || res.Sink.HasErrors() {
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "built %s\n", res.Executable)
}

func runCommand(args []string) {
	flags := flag.NewFlagSet("run", flag.ExitOnError)
	verbose := flags.Bool("verbose", false, "enable verbose output")
	flags.Parse(args)

	if flags.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "anchor: run requires a file argument\n\n")
		printUsage()
		os.Exit(1)
	}
	file := flags.Arg(0)

	res, err := driver.Run(file, *verbose)
	if res != nil {
		printDiagnostics(res.Sink)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "anchor: %v\n", err)
		if res != nil && res.CCOutput != "" {
			fmt.Fprint(os.Stderr, res.CCOutput)
		}
		os.Exit(1)
	}
	if res == nil || res.Sink.HasErrors() {
		os.Exit(1)
	}
}

func lspCommand(args []string) {
	flags := flag.NewFlagSet("lsp", flag.ExitOnError)
	verbose := flags.Bool("verbose", false, "enable verbose output")
	flags.Parse(args)

	dir := "."
	if flags.NArg() > 0 {
		dir = flags.Arg(0)
	}

	if err := lsp.Serve(os.Stdin, os.Stdout, dir, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "anchor: %v\n", err)
		os.Exit(1)
	}
}

func lexerCommand(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "anchor: lexer requires a file argument\n\n")
		printUsage()
		os.Exit(1)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "anchor: %v\n", err)
		os.Exit(1)
	}

	sink := diagnostics.NewSink()
	toks := lexer.New(string(data), sink).Tokens()
	for _, tok := range toks {
		fmt.Printf("%d:%d\t%-10s %q\n", tok.Pos.Line, tok.Pos.Column, tok.Kind, tok.Text)
	}
	printDiagnostics(sink)
	if sink.HasErrors() {
		os.Exit(1)
	}
}

func astCommand(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "anchor: ast requires a file argument\n\n")
		printUsage()
		os.Exit(1)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "anchor: %v\n", err)
		os.Exit(1)
	}

	sink := diagnostics.NewSink()
	a := arena.New(0)
	toks := lexer.New(string(data), sink).Tokens()
	prog := parser.Parse(toks, sink, a)
	dumpNode(prog, 0)
	printDiagnostics(sink)
	if sink.HasErrors() {
		os.Exit(1)
	}
}

// dumpNode prints a node and its children as an indented tree, following
// the declaration, body, field-type, method, branch, operand, call and
// receiver slots. elseif conditions, match cases, parameters, interface signatures,
// struct-literal fields, casts, sizeof, array elements, index
// expressions, and declared/return/type-argument types are not printed.
func dumpNode(n *ast.Node, depth int) {
	if n == nil {
		return
	}
	indent(depth)
	fmt.Printf("%s", kindName(n.Kind))
	if n.Name != "" {
		fmt.Printf(" %s", n.Name)
	}
	if n.Text != "" {
		fmt.Printf(" %q", n.Text)
	}
	fmt.Printf(" (%d:%d)\n", n.Pos.Line, n.Pos.Column)

	for _, child := range n.Decls {
		dumpNode(child, depth+1)
	}
	for _, child := range n.Body {
		dumpNode(child, depth+1)
	}
	for _, child := range n.Fields {
		dumpNode(child.Type, depth+1)
	}
	for _, child := range n.Methods {
		dumpNode(child, depth+1)
	}
	dumpNode(n.Init, depth+1)
	dumpNode(n.Cond, depth+1)
	for _, child := range n.Then {
		dumpNode(child, depth+1)
	}
	for _, body := range n.ElseIfBody {
		for _, child := range body {
			dumpNode(child, depth+1)
		}
	}
	for _, child := range n.Else {
		dumpNode(child, depth+1)
	}
	dumpNode(n.Subject, depth+1)
	dumpNode(n.Start, depth+1)
	dumpNode(n.End, depth+1)
	dumpNode(n.Step, depth+1)
	dumpNode(n.Inner, depth+1)
	dumpNode(n.Base, depth+1)
	dumpNode(n.Left, depth+1)
	dumpNode(n.Right, depth+1)
	dumpNode(n.Operand, depth+1)
	dumpNode(n.Value, depth+1)
	dumpNode(n.Lhs, depth+1)
	dumpNode(n.Rhs, depth+1)
	dumpNode(n.Callee, depth+1)
	dumpNode(n.Receiver, depth+1)
	for _, arg := range n.Args {
		dumpNode(arg, depth+1)
	}
}

func indent(depth int) {
	for i := 0; i < depth; i++ {
		fmt.Print("  ")
	}
}

func kindName(k ast.Kind) string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "UNKNOWN"
}

var kindNames = []string{
	"Program",
	"DeclImport", "DeclConst", "DeclVar", "DeclFunc", "DeclStruct", "DeclInterface", "DeclEnum",
	"StmtReturn", "StmtIf", "StmtForRange", "StmtWhile", "StmtBreak", "StmtContinue",
	"StmtMatch", "StmtAssign", "StmtCompoundAssign", "StmtExpr",
	"ExprInt", "ExprFloat", "ExprString", "ExprBool", "ExprNull", "ExprIdent", "ExprSelf",
	"ExprBinary", "ExprUnary", "ExprParen", "ExprCall", "ExprField", "ExprMethodCall",
	"ExprStructLiteral", "ExprCast", "ExprSizeof", "ExprArrayLiteral", "ExprIndex",
	"TypeSimple", "TypeRef", "TypePtr", "TypeArray", "TypeSlice",
}
