/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package asset_handlers

import (
	dbclient "github.com/meshstash/meshstash/pkg/database/client"
)

// Path parameter names.
const (
	ParamId       = "id"
	ParamSetId    = "setId"
	ParamHash     = "hash"
	ParamKind     = "kind"
	ParamMemberId = "memberId"
	ParamTag      = "tag"
)

type UploadResponse struct {
	EntityId     int64  `json:"id"`
	VersionId    int64  `json:"versionId,omitempty"`
	BlobHash     string `json:"blobHash"`
	Deduplicated bool   `json:"deduplicated"`
	IsNewEntity  bool   `json:"isNewEntity"`
}

type ListModelsResponse struct {
	TotalCount int64             `json:"totalCount"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
	Items      []*dbclient.Model `json:"items"`
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}

type PatchModelRequest struct {
	DisplayName *string `json:"displayName,omitempty"`
	Description *string `json:"description,omitempty"`
	Tags        *string `json:"tags,omitempty"`
}

type CreateVersionRequest struct {
	Description string `json:"description,omitempty"`
}

type SetActiveVersionRequest struct {
	VersionId int64 `json:"versionId"`
}

type SetDefaultTextureSetRequest struct {
	// nil clears the pointer
	TextureSetId *int64 `json:"textureSetId"`
}

type RegenerateResponse struct {
	JobId        int64 `json:"jobId"`
	Deduplicated bool  `json:"deduplicated"`
}

type CreateTextureSetRequest struct {
	Name    string  `json:"name"`
	UVScale float64 `json:"uvScale,omitempty"`
}

type PatchTextureSetRequest struct {
	Name    *string  `json:"name,omitempty"`
	UVScale *float64 `json:"uvScale,omitempty"`
}

type ListTextureSetsResponse struct {
	TotalCount int64                  `json:"totalCount"`
	Items      []*dbclient.TextureSet `json:"items"`
}

type ListSoundsResponse struct {
	TotalCount int64             `json:"totalCount"`
	Items      []*dbclient.Sound `json:"items"`
}

type ListSpritesResponse struct {
	TotalCount int64              `json:"totalCount"`
	Items      []*dbclient.Sprite `json:"items"`
}

type CreateContainerRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type MemberRequest struct {
	MemberKind string `json:"memberKind"`
	MemberId   int64  `json:"memberId"`
}

type SweepBlobsResponse struct {
	Removed int `json:"removed"`
}

type BatchUploadView struct {
	Id         int64  `json:"id"`
	UploadKind string `json:"uploadKind"`
	BlobHash   string `json:"blobHash"`
	OwnerKind  string `json:"ownerKind,omitempty"`
	OwnerId    int64  `json:"ownerId,omitempty"`
}

type BatchResponse struct {
	BatchTag string             `json:"batchTag"`
	Items    []*BatchUploadView `json:"items"`
}

func cvtToBatchUploadView(record *dbclient.BatchUpload) *BatchUploadView {
	return &BatchUploadView{
		Id:         record.Id,
		UploadKind: record.UploadKind,
		BlobHash:   record.BlobHash,
		OwnerKind:  record.OwnerKind.String,
		OwnerId:    record.OwnerId.Int64,
	}
}
