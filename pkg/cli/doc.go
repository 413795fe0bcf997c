/*
Package cli provides command-line support for the galen command:
output formatters, typed errors, progress reporting, and signal
handling.

Output Formatting:

Command results render as text, JSON, or an aligned table. Result
types implement [Tabular] to get table output; everything else falls
back to text:

	format, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	formatter := cli.NewFormatter(format)
	if err := formatter.FormatTo(os.Stdout, result); err != nil {
		return err
	}

Errors:

Commands wrap failures so exit paths stay distinguishable:

	if err := load(path); err != nil {
		return cli.NewConfigError("guardrails.rule_path", err.Error())
	}

Progress Reporting:

Batch operations report progress on one line:

	progress := cli.NewProgressReporter(os.Stdout)
	progress.Start(total)
	for i := int64(0); i < total; i++ {
		// do one operation
		progress.Update(i + 1)
	}
	progress.Finish()

Signal Handling:

Long-running commands stop cleanly on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler()
	defer stop()
	return srv.Start(ctx)
*/
package cli
