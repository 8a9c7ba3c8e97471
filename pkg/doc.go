// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: Copyright The Bamboo Authors

/*
Package bamboo is a dataframe-style client for Elasticsearch-compatible
search clusters.

It maps an index mapping onto typed field handles, compiles fluent
conditions into native query documents, and reshapes hits and aggregation
results into flat rows or Apache Arrow records. Frames are immutable:
every refinement returns a new frame, and nothing touches the cluster
until a terminal operation runs.

# Basic Usage

Connect to a cluster and open a frame over an index:

	conn, err := bamboo.Connect(context.Background(), nil, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	df, err := conn.DataFrame(context.Background(), "accounts")
	if err != nil {
		log.Fatal(err)
	}

# Building Queries

Fields resolve from the mapping with their value types attached, so
unsupported operators fail before anything is sent:

	age, _ := df.Field("user.age")
	name, _ := df.Field("user.name")

	adults := df.Where(age.Gte(18)).Filter(name.Exists())
	rows, err := adults.Collect(context.Background(), nil)

Conditions compose with And, Or and Not and compile to minimal bool
queries:

	cond := age.Gte(18).And(name.StartsWith("jo")).Not()
	body, err := df.Where(cond).Body()

# Collecting Results

Limited frames run one sized search; unlimited frames drain the index
through a scroll cursor. Rows are the document sources, optionally
carrying the relevance score and document id:

	rows, err := df.Limit(100).Collect(ctx, &contracts.CollectOptions{
		IncludeScore: true,
		IncludeID:    true,
	})

	record, err := df.ToArrow(ctx, nil)

# Aggregations

Field handles aggregate over the frame's query:

	counts, err := status.ValueCounts(ctx, nil)
	distinct, err := status.NUnique(ctx, 0)
	mean, err := balance.Avg(ctx)
	stats, err := balance.Describe(ctx, &contracts.DescribeOptions{Extended: true})
	spread, err := balance.MedianAbsoluteDeviation(ctx, nil)

# Thread Safety

Connections are safe for concurrent use. Frames are immutable and can be
shared freely; refinements never modify the frame they were called on.
*/
package bamboo
