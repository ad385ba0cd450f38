// Package wheelhouse provides a high-level library API over the rollout
// engine. It wraps the internal packages into a clean public surface for
// programs that embed wheelhouse instead of shelling out to the CLI.
//
// # Concurrency Safety
//
//   - A Client is safe for concurrent reads (Artifacts, History, Targets).
//
//   - AddArtifact appends to the repository install log under an advisory
//     file lock; concurrent registrations from separate processes serialize
//     on that lock.
//
//   - Deploy runs targets sequentially. Do not run two Deploy calls against
//     overlapping targets at the same time; pip gives no such guarantee.
//
// # Recommended Usage Pattern
//
//	client, err := wheelhouse.Discover(".")
//	if err != nil { ... }
//	client.AddArtifact("dist/app-1.4.0-py3.whl")
//	res, err := client.Deploy(ctx, wheelhouse.DeployOptions{
//	    Selector:    "web",
//	    AutoConfirm: true,
//	})
//	os.Exit(res.ExitCode)
package wheelhouse
