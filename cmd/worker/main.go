/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package main

import (
	"fmt"

	"github.com/meshstash/meshstash/pkg/processors"
	"github.com/meshstash/meshstash/pkg/worker"
)

func main() {
	s, err := worker.NewServer(processors.DefaultRegistry)
	if err != nil {
		fmt.Println("failed to new worker, err: ", err.Error())
		return
	}
	s.Start()
}
