// Package plugins defines the transform plugin descriptors and the ordered
// transform pipeline for Fresnel.
//
// # Overview
//
// A plugin is declared in the project configuration as a Descriptor: a kind
// tag plus kind-specific options. The package provides two built-in kinds:
//
//   - asset: ingests raw asset files (images, meshes, data blobs) by
//     extension and rewrites them into importable modules.
//   - framework: integrates a component framework, claiming the framework's
//     single-file-component extension.
//
// Descriptors are tagged variants, so the pipeline dispatches on the Kind
// field without dynamic type inspection. Declaration order is significant:
// the pipeline applies plugins in exactly the declared order and never
// reorders or deduplicates them.
//
// # Usage Example
//
//	reg := plugins.NewRegistry()
//	pipeline, err := reg.BuildPipeline(cfg.Plugins)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := pipeline.Transform(ctx, plugins.TransformRequest{
//	    Path:   "logo.png",
//	    Source: data,
//	})
//
// # Thread Safety
//
// Registry and Pipeline are safe for concurrent use once built.
package plugins
