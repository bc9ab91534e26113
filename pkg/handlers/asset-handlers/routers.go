/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package asset_handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

const routerRootPath = "/api/v1"

func InitAssetRouters(e *gin.Engine, h *Handler) {
	group := e.Group(routerRootPath)
	{
		group.POST("files", h.UploadFile)
		group.GET(fmt.Sprintf("files/:%s", ParamHash), h.DownloadFile)
		group.POST("batches", h.CreateBatch)
		group.GET(fmt.Sprintf("batches/:%s", ParamTag), h.GetBatch)

		group.POST("models", h.UploadModel)
		group.GET("models", h.ListModels)
		group.GET(fmt.Sprintf("models/:%s", ParamId), h.GetModel)
		group.PATCH(fmt.Sprintf("models/:%s", ParamId), h.PatchModel)
		group.DELETE(fmt.Sprintf("models/:%s", ParamId), h.DeleteModel)
		group.POST(fmt.Sprintf("models/:%s/versions", ParamId), h.CreateModelVersion)
		group.PUT(fmt.Sprintf("models/:%s/active-version", ParamId), h.SetActiveVersion)
		group.PUT(fmt.Sprintf("models/:%s/default-textureset", ParamId), h.SetDefaultTextureSet)
		group.GET(fmt.Sprintf("models/:%s/thumbnail", ParamId), h.GetModelThumbnail)
		group.GET(fmt.Sprintf("models/:%s/thumbnail/file", ParamId), h.GetModelThumbnailFile)
		group.POST(fmt.Sprintf("models/:%s/thumbnail/regenerate", ParamId), h.RegenerateThumbnail)

		group.DELETE(fmt.Sprintf("versions/:%s", ParamId), h.DeleteVersion)
		group.PUT(fmt.Sprintf("versions/:%s/texturesets/:%s", ParamId, ParamSetId), h.AssociateTextureSet)
		group.DELETE(fmt.Sprintf("versions/:%s/texturesets/:%s", ParamId, ParamSetId), h.DissociateTextureSet)
		group.DELETE(fmt.Sprintf("version-files/:%s", ParamId), h.DeleteVersionFile)

		group.POST("texturesets", h.CreateTextureSet)
		group.GET("texturesets", h.ListTextureSets)
		group.GET(fmt.Sprintf("texturesets/:%s", ParamId), h.GetTextureSet)
		group.PATCH(fmt.Sprintf("texturesets/:%s", ParamId), h.PatchTextureSet)
		group.DELETE(fmt.Sprintf("texturesets/:%s", ParamId), h.DeleteTextureSet)
		group.GET(fmt.Sprintf("texturesets/:%s/thumbnail", ParamId), h.GetTextureSetThumbnail)
		group.GET(fmt.Sprintf("texturesets/:%s/thumbnail/file", ParamId), h.GetTextureSetThumbnailFile)
		group.DELETE(fmt.Sprintf("textures/:%s", ParamId), h.DeleteTexture)

		group.GET("sounds", h.ListSounds)
		group.GET(fmt.Sprintf("sounds/:%s", ParamId), h.GetSound)
		group.DELETE(fmt.Sprintf("sounds/:%s", ParamId), h.DeleteSound)
		group.GET(fmt.Sprintf("sounds/:%s/waveform", ParamId), h.GetSoundWaveform)
		group.GET(fmt.Sprintf("sounds/:%s/waveform/file", ParamId), h.GetSoundWaveformFile)

		group.GET("sprites", h.ListSprites)
		group.GET(fmt.Sprintf("sprites/:%s", ParamId), h.GetSprite)
		group.DELETE(fmt.Sprintf("sprites/:%s", ParamId), h.DeleteSprite)

		group.POST("packs", h.CreatePack)
		group.GET("packs", h.ListPacks)
		group.GET(fmt.Sprintf("packs/:%s", ParamId), h.GetPack)
		group.DELETE(fmt.Sprintf("packs/:%s", ParamId), h.DeletePack)
		group.POST(fmt.Sprintf("packs/:%s/members", ParamId), h.AddPackMember)
		group.DELETE(fmt.Sprintf("packs/:%s/members/:%s/:%s", ParamId, ParamKind, ParamMemberId), h.RemovePackMember)

		group.POST("projects", h.CreateProject)
		group.GET("projects", h.ListProjects)
		group.GET(fmt.Sprintf("projects/:%s", ParamId), h.GetProject)
		group.DELETE(fmt.Sprintf("projects/:%s", ParamId), h.DeleteProject)
		group.POST(fmt.Sprintf("projects/:%s/members", ParamId), h.AddProjectMember)
		group.DELETE(fmt.Sprintf("projects/:%s/members/:%s/:%s", ParamId, ParamKind, ParamMemberId), h.RemoveProjectMember)

		group.GET("jobs", h.ListJobs)
		group.GET(fmt.Sprintf("jobs/:%s", ParamId), h.GetJob)
		group.GET(fmt.Sprintf("jobs/:%s/events", ParamId), h.GetJobEvents)

		group.GET("recycled", h.ListRecycled)
		group.POST(fmt.Sprintf("recycled/:%s/:%s/restore", ParamKind, ParamId), h.RestoreRecycled)
		group.DELETE(fmt.Sprintf("recycled/:%s/:%s", ParamKind, ParamId), h.PurgeRecycled)

		group.POST("maintenance/blob-gc", h.SweepBlobs)
	}
}
