/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package job_handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

const routerRootPath = "/worker"

func InitWorkerRouters(e *gin.Engine, h *Handler) {
	group := e.Group(routerRootPath)
	{
		group.POST("jobs/lease", h.LeaseJob)
		group.POST(fmt.Sprintf("jobs/:%s/renew", ParamId), h.RenewJob)
		group.POST(fmt.Sprintf("jobs/:%s/complete", ParamId), h.CompleteJob)
		group.POST(fmt.Sprintf("jobs/:%s/fail", ParamId), h.FailJob)
		group.POST(fmt.Sprintf("jobs/:%s/progress", ParamId), h.ReportProgress)

		group.GET(fmt.Sprintf("blobs/:%s", ParamHash), h.FetchBlob)
		group.POST("blobs", h.StoreBlob)
	}
}
