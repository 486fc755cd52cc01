/*
Command goconcat type checks and runs programs written in a small statically
typed concatenative language.

Programs are sequences of whitespace separated words operating on a stack.
Before anything runs, the checker abstractly interprets every word over a
stack of types: it resolves overloaded procedures by the types found on the
stack, instantiates generic procedures and structs, merges the stacks of
branches, and folds calls to pure natives whose inputs are all constant.
What it emits is a flat list of resolved tokens where every jump already
knows its target; the stack machine in this package then runs that list
without re-checking anything.

A short program:

	square proc( int => int ){ dup * }
	fizz proc( int ){
	    dup 3 % 0 == if{ "fizz" println drop else println }
	}
	1 while{ dup 10 <= do dup square fizz 1 + } drop

Usage:

	goconcat [flags] [file ...]

With no files, the main source named by concat.yaml is used, or else the
program is read from stdin. Several files are loaded in order into one
program. Flags:

	-check       only type check, each file on its own
	-dump        print the checked program as YAML instead of running it
	-trace       log every executed token
	-timeout     stop a run after the given duration
	-max-depth   limit how deep procedure calls may nest
	-no-prelude  do not load the prelude
	-warnings    warn, error or ignore checker warnings
	-config      project file to read, concat.yaml by default

A program's exit status is its exit code when it ends with exit, 1 after a
check, runtime or assertion failure, and 0 otherwise.
*/
package main
