package model_test

import (
	"fmt"

	"github.com/dshills/rxdata/internal/event"
	"github.com/dshills/rxdata/internal/model"
)

func Example() {
	todos := model.NewCollection(&model.Kind{Name: "todo"}, model.WithComparator(model.ByAttribute("rank")))
	todos.On("change:done", func(e event.Event) {
		r := e.Arg(0).(*model.Record)
		fmt.Printf("%s done=%v\n", r.Get("title"), e.Arg(1))
	})

	todos.Add([]model.Member{
		model.Attributes{"id": 1, "title": "write docs", "rank": 2},
		model.Attributes{"id": 2, "title": "fix bug", "rank": 1},
	})
	fmt.Println(todos.Pluck("title"))

	todos.Get(1).SetKey("done", true)
	// Output:
	// [fix bug write docs]
	// write docs done=true
}
