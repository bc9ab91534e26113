/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package asset_handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	dbclient "github.com/meshstash/meshstash/pkg/database/client"
	commonerrors "github.com/meshstash/meshstash/pkg/errors"
	apiutils "github.com/meshstash/meshstash/pkg/handlers/apiutils"
)

var memberKinds = map[string]bool{
	dbclient.MemberModel:      true,
	dbclient.MemberTextureSet: true,
	dbclient.MemberSound:      true,
	dbclient.MemberSprite:     true,
}

func (h *Handler) CreatePack(c *gin.Context) {
	handle(c, h.createPack)
}

func (h *Handler) ListPacks(c *gin.Context) {
	handle(c, h.listPacks)
}

func (h *Handler) GetPack(c *gin.Context) {
	handle(c, h.getPack)
}

func (h *Handler) DeletePack(c *gin.Context) {
	handle(c, h.deletePack)
}

func (h *Handler) AddPackMember(c *gin.Context) {
	handle(c, h.addPackMember)
}

func (h *Handler) RemovePackMember(c *gin.Context) {
	handle(c, h.removePackMember)
}

func (h *Handler) CreateProject(c *gin.Context) {
	handle(c, h.createProject)
}

func (h *Handler) ListProjects(c *gin.Context) {
	handle(c, h.listProjects)
}

func (h *Handler) GetProject(c *gin.Context) {
	handle(c, h.getProject)
}

func (h *Handler) DeleteProject(c *gin.Context) {
	handle(c, h.deleteProject)
}

func (h *Handler) AddProjectMember(c *gin.Context) {
	handle(c, h.addProjectMember)
}

func (h *Handler) RemoveProjectMember(c *gin.Context) {
	handle(c, h.removeProjectMember)
}

func (h *Handler) createPack(c *gin.Context) (interface{}, error) {
	req := &CreateContainerRequest{}
	if _, err := getBodyFromRequest(c.Request, req); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, commonerrors.NewBadRequest("the name is required")
	}
	pack := &dbclient.Pack{Name: req.Name, Description: req.Description}
	if err := h.dbClient.CreatePack(c.Request.Context(), pack); err != nil {
		return nil, err
	}
	c.Status(http.StatusCreated)
	return pack, nil
}

func (h *Handler) listPacks(c *gin.Context) (interface{}, error) {
	return h.dbClient.ListPacks(c.Request.Context())
}

func (h *Handler) getPack(c *gin.Context) (interface{}, error) {
	packId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	return h.dbClient.GetPack(c.Request.Context(), packId)
}

func (h *Handler) deletePack(c *gin.Context) (interface{}, error) {
	packId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	if err = h.dbClient.DeletePack(c.Request.Context(), packId); err != nil {
		return nil, err
	}
	return gin.H{"id": packId}, nil
}

func (h *Handler) addPackMember(c *gin.Context) (interface{}, error) {
	packId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	req, err := parseMemberRequest(c)
	if err != nil {
		return nil, err
	}
	// The pack must exist; membership edges never create their container.
	if _, err = h.dbClient.GetPack(c.Request.Context(), packId); err != nil {
		return nil, err
	}
	member := &dbclient.PackMember{
		PackId:     packId,
		MemberKind: req.MemberKind,
		MemberId:   req.MemberId,
	}
	if err = h.dbClient.AddPackMember(c.Request.Context(), member); err != nil {
		return nil, err
	}
	return member, nil
}

func (h *Handler) removePackMember(c *gin.Context) (interface{}, error) {
	packId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	memberKind := c.Param(ParamKind)
	if !memberKinds[memberKind] {
		return nil, commonerrors.NewBadRequest(fmt.Sprintf("unknown member kind %q", memberKind))
	}
	memberId, err := apiutils.ParseIdParam(c, ParamMemberId)
	if err != nil {
		return nil, err
	}
	if err = h.dbClient.RemovePackMember(c.Request.Context(), packId, memberKind, memberId); err != nil {
		return nil, err
	}
	return gin.H{"packId": packId, "memberKind": memberKind, "memberId": memberId}, nil
}

func (h *Handler) createProject(c *gin.Context) (interface{}, error) {
	req := &CreateContainerRequest{}
	if _, err := getBodyFromRequest(c.Request, req); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, commonerrors.NewBadRequest("the name is required")
	}
	project := &dbclient.Project{Name: req.Name, Description: req.Description}
	if err := h.dbClient.CreateProject(c.Request.Context(), project); err != nil {
		return nil, err
	}
	c.Status(http.StatusCreated)
	return project, nil
}

func (h *Handler) listProjects(c *gin.Context) (interface{}, error) {
	return h.dbClient.ListProjects(c.Request.Context())
}

func (h *Handler) getProject(c *gin.Context) (interface{}, error) {
	projectId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	return h.dbClient.GetProject(c.Request.Context(), projectId)
}

func (h *Handler) deleteProject(c *gin.Context) (interface{}, error) {
	projectId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	if err = h.dbClient.DeleteProject(c.Request.Context(), projectId); err != nil {
		return nil, err
	}
	return gin.H{"id": projectId}, nil
}

func (h *Handler) addProjectMember(c *gin.Context) (interface{}, error) {
	projectId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	req, err := parseMemberRequest(c)
	if err != nil {
		return nil, err
	}
	if _, err = h.dbClient.GetProject(c.Request.Context(), projectId); err != nil {
		return nil, err
	}
	member := &dbclient.ProjectMember{
		ProjectId:  projectId,
		MemberKind: req.MemberKind,
		MemberId:   req.MemberId,
	}
	if err = h.dbClient.AddProjectMember(c.Request.Context(), member); err != nil {
		return nil, err
	}
	return member, nil
}

func (h *Handler) removeProjectMember(c *gin.Context) (interface{}, error) {
	projectId, err := apiutils.ParseIdParam(c, ParamId)
	if err != nil {
		return nil, err
	}
	memberKind := c.Param(ParamKind)
	if !memberKinds[memberKind] {
		return nil, commonerrors.NewBadRequest(fmt.Sprintf("unknown member kind %q", memberKind))
	}
	memberId, err := apiutils.ParseIdParam(c, ParamMemberId)
	if err != nil {
		return nil, err
	}
	if err = h.dbClient.RemoveProjectMember(c.Request.Context(), projectId, memberKind, memberId); err != nil {
		return nil, err
	}
	return gin.H{"projectId": projectId, "memberKind": memberKind, "memberId": memberId}, nil
}

func parseMemberRequest(c *gin.Context) (*MemberRequest, error) {
	req := &MemberRequest{}
	if _, err := getBodyFromRequest(c.Request, req); err != nil {
		return nil, err
	}
	if !memberKinds[req.MemberKind] {
		return nil, commonerrors.NewBadRequest(fmt.Sprintf("unknown member kind %q", req.MemberKind))
	}
	if req.MemberId <= 0 {
		return nil, commonerrors.NewBadRequest("the memberId is required")
	}
	return req, nil
}
