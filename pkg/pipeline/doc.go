// Package pipeline runs a static graph of stages over one input.
//
// Stages declare their dependencies and the state fields they own up front.
// A Graph validates those declarations once, at construction: it rejects
// cycles, unknown dependencies and two stages claiming the same output field.
// A Scheduler then executes the graph, launching every stage whose
// dependencies have completed, so independent stages fan out concurrently and
// a stage depending on several of them waits behind a counting join barrier.
//
// Example usage:
//
//	parse := &pipeline.FuncStage{
//	    Name:   "parse",
//	    Reads:  []string{"input"},
//	    Writes: []string{"tokens"},
//	    Fn: func(ctx context.Context, in pipeline.View) (pipeline.Outputs, error) {
//	        return pipeline.Outputs{"tokens": strings.Fields(in.String("input"))}, nil
//	    },
//	}
//	count := &pipeline.FuncStage{
//	    Name:   "count",
//	    Deps:   []string{"parse"},
//	    Writes: []string{"count"},
//	    Fn: func(ctx context.Context, in pipeline.View) (pipeline.Outputs, error) {
//	        tokens, _ := in.Get("tokens").([]string)
//	        return pipeline.Outputs{"count": len(tokens)}, nil
//	    },
//	}
//
//	graph, err := pipeline.NewGraph(parse, count)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := pipeline.NewScheduler().Run(ctx, graph, pipeline.Outputs{"input": "a b c"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.State.Get("count")) // 3
package pipeline
