// tdk is the Tabular Data Kit. It contains small composable pieces for
// loading tabular data, transforming it a column at a time, and running
// those transformations as a staged, cached pipeline.
//
// The pieces fit together like this:
//
// 1. Source
//
//    A tdk.Source is where records come from. Your data is everywhere - S3
//    buckets, local CSV files, Kafka topics, URLs, hard-coded in tests.
//    Different Sources know how to interact with the various systems holding
//    your data and get it out one record at a time, all wrapped up behind one
//    convenient interface. A Source does not manipulate the data in any way -
//    that job falls to the Schema and the frame loader.
//
// 2. Schema
//
//    A tdk.Schema describes the fields a record is expected to carry and how
//    to parse each one from its raw representation. Decoding a record through
//    a Schema yields typed values (or nulls for absent optional fields) which
//    the frame package assembles into columns.
//
// 3. Frame
//
//    The frame package holds a columnar, in-memory table. Transformations are
//    expressed as whole-column verbs (Mutate, Filter, Sort, GroupBy, window
//    helpers) rather than per-row loops at the call site. This is the
//    vectorization principle the worked usecases demonstrate.
//
// 4. Flow
//
//    The flow package runs tasks over frames in named stages, materializing
//    each task's outputs to a pluggable store keyed by the task's version and
//    inputs, so unchanged tasks are not recomputed on the next run.
//
// The usecase subdirectories hold worked examples wiring all of the above
// together, and cmd holds the CLI entry points.

package tdk
