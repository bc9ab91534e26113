/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package client

import "time"

const (
	TableBlob            = "blob"
	TableModel           = "model"
	TableModelVersion    = "model_version"
	TableVersionFile     = "version_file"
	TableThumbnail       = "thumbnail"
	TableTextureSet      = "texture_set"
	TableTexture         = "texture"
	TableSound           = "sound"
	TableSprite          = "sprite"
	TablePack            = "pack"
	TableProject         = "project"
	TableModelTextureSet = "model_texture_set"
	TablePackMember      = "pack_member"
	TableProjectMember   = "project_member"
	TableJob             = "job"
	TableJobEvent        = "job_event"
	TableBatchUpload     = "batch_upload"
)

// Blob logical kinds declared at upload time.
const (
	BlobKindModel       = "MODEL"
	BlobKindTexture     = "TEXTURE"
	BlobKindMaterial    = "MATERIAL"
	BlobKindProjectFile = "PROJECT_FILE"
	BlobKindSound       = "SOUND"
	BlobKindImage       = "IMAGE"
	BlobKindOther       = "OTHER"
)

// Version file roles.
const (
	RolePrimary   = "primary"
	RoleProject   = "project"
	RoleAuxiliary = "auxiliary"
)

// Thumbnail statuses as surfaced on the API.
const (
	ThumbnailPending    = "Pending"
	ThumbnailProcessing = "Processing"
	ThumbnailReady      = "Ready"
	ThumbnailFailed     = "Failed"
)

// Thumbnail owner kinds.
const (
	OwnerModelVersion = "model_version"
	OwnerTextureSet   = "texture_set"
	OwnerSound        = "sound"
	OwnerSprite       = "sprite"
)

// Texture semantic types. SplitChannel is an internal placeholder and is
// hidden from external enumerations.
const (
	TextureAlbedo       = "ALBEDO"
	TextureNormal       = "NORMAL"
	TextureHeight       = "HEIGHT"
	TextureDisplacement = "DISPLACEMENT"
	TextureBump         = "BUMP"
	TextureAO           = "AO"
	TextureRoughness    = "ROUGHNESS"
	TextureMetallic     = "METALLIC"
	TextureEmissive     = "EMISSIVE"
	TextureAlpha        = "ALPHA"
	TextureSplitChannel = "SPLIT_CHANNEL"
)

// Recycle entry kinds. These name the soft-deletable tables on the recycle API.
const (
	RecycleModel        = "model"
	RecycleModelVersion = "model_version"
	RecycleFile         = "file"
	RecycleTextureSet   = "texture_set"
	RecycleTexture      = "texture"
	RecycleSound        = "sound"
	RecycleSprite       = "sprite"
)

// Container kinds for pack/project membership.
const (
	MemberModel      = "model"
	MemberTextureSet = "texture_set"
	MemberSound      = "sound"
	MemberSprite     = "sprite"
)

type Blob struct {
	Hash         string    `gorm:"column:hash;primaryKey" json:"hash"`
	SizeBytes    int64     `gorm:"column:size_bytes;not null" json:"sizeBytes"`
	MimeHint     string    `gorm:"column:mime_hint" json:"mimeHint"`
	FileNameHint string    `gorm:"column:file_name_hint" json:"fileNameHint"`
	Kind         string    `gorm:"column:kind;not null" json:"kind"`
	CreateTime   time.Time `gorm:"column:create_time;default:now()" json:"createTime"`
}

func (*Blob) TableName() string { return TableBlob }

type Model struct {
	Id                  int64          `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	DisplayName         string         `gorm:"column:display_name;not null" json:"displayName"`
	Description         string         `gorm:"column:description" json:"description"`
	Tags                string         `gorm:"column:tags" json:"tags"`
	DefaultTextureSetId *int64         `gorm:"column:default_texture_set_id" json:"defaultTextureSetId"`
	ActiveVersionId     *int64         `gorm:"column:active_version_id" json:"activeVersionId"`
	IsDeleted           bool           `gorm:"column:is_deleted;default:false" json:"-"`
	DeleteTime          *time.Time     `gorm:"column:delete_time" json:"-"`
	CreateTime          time.Time      `gorm:"column:create_time;default:now()" json:"createTime"`
	UpdateTime          time.Time      `gorm:"column:update_time;default:now()" json:"updateTime"`
	Versions            []ModelVersion `gorm:"foreignKey:ModelId" json:"versions,omitempty"`
}

func (*Model) TableName() string { return TableModel }

type ModelVersion struct {
	Id            int64         `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	ModelId       int64         `gorm:"column:model_id;not null" json:"modelId"`
	VersionNumber int           `gorm:"column:version_number;not null" json:"versionNumber"`
	Description   string        `gorm:"column:description" json:"description"`
	IsDeleted     bool          `gorm:"column:is_deleted;default:false" json:"-"`
	DeleteTime    *time.Time    `gorm:"column:delete_time" json:"-"`
	CreateTime    time.Time     `gorm:"column:create_time;default:now()" json:"createTime"`
	Files         []VersionFile `gorm:"foreignKey:VersionId" json:"files,omitempty"`
}

func (*ModelVersion) TableName() string { return TableModelVersion }

type VersionFile struct {
	Id         int64      `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	VersionId  int64      `gorm:"column:version_id;not null" json:"versionId"`
	BlobHash   string     `gorm:"column:blob_hash;not null" json:"blobHash"`
	Role       string     `gorm:"column:role;not null" json:"role"`
	FileName   string     `gorm:"column:file_name" json:"fileName"`
	IsDeleted  bool       `gorm:"column:is_deleted;default:false" json:"-"`
	DeleteTime *time.Time `gorm:"column:delete_time" json:"-"`
	CreateTime time.Time  `gorm:"column:create_time;default:now()" json:"createTime"`
}

func (*VersionFile) TableName() string { return TableVersionFile }

type Thumbnail struct {
	Id             int64      `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	OwnerKind      string     `gorm:"column:owner_kind;not null" json:"ownerKind"`
	OwnerId        int64      `gorm:"column:owner_id;not null" json:"ownerId"`
	Status         string     `gorm:"column:status;not null" json:"status"`
	OutputBlobHash string     `gorm:"column:output_blob_hash" json:"outputBlobHash,omitempty"`
	Width          int        `gorm:"column:width" json:"width,omitempty"`
	Height         int        `gorm:"column:height" json:"height,omitempty"`
	SizeBytes      int64      `gorm:"column:size_bytes" json:"sizeBytes,omitempty"`
	ErrorMessage   string     `gorm:"column:error_message" json:"errorMessage,omitempty"`
	CreateTime     time.Time  `gorm:"column:create_time;default:now()" json:"createTime"`
	ProcessTime    *time.Time `gorm:"column:process_time" json:"processTime,omitempty"`
}

func (*Thumbnail) TableName() string { return TableThumbnail }

type TextureSet struct {
	Id         int64      `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	Name       string     `gorm:"column:name;not null" json:"name"`
	UVScale    float64    `gorm:"column:uv_scale;default:1" json:"uvScale"`
	IsDeleted  bool       `gorm:"column:is_deleted;default:false" json:"-"`
	DeleteTime *time.Time `gorm:"column:delete_time" json:"-"`
	CreateTime time.Time  `gorm:"column:create_time;default:now()" json:"createTime"`
	UpdateTime time.Time  `gorm:"column:update_time;default:now()" json:"updateTime"`
	Textures   []Texture  `gorm:"foreignKey:TextureSetId" json:"textures,omitempty"`
}

func (*TextureSet) TableName() string { return TableTextureSet }

type Texture struct {
	Id            int64      `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	TextureSetId  int64      `gorm:"column:texture_set_id;not null" json:"textureSetId"`
	BlobHash      string     `gorm:"column:blob_hash;not null" json:"blobHash"`
	TextureType   string     `gorm:"column:texture_type;not null" json:"textureType"`
	SourceChannel string     `gorm:"column:source_channel" json:"sourceChannel,omitempty"`
	IsDeleted     bool       `gorm:"column:is_deleted;default:false" json:"-"`
	DeleteTime    *time.Time `gorm:"column:delete_time" json:"-"`
	CreateTime    time.Time  `gorm:"column:create_time;default:now()" json:"createTime"`
}

func (*Texture) TableName() string { return TableTexture }

type Sound struct {
	Id         int64      `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	Name       string     `gorm:"column:name;not null" json:"name"`
	BlobHash   string     `gorm:"column:blob_hash;not null" json:"blobHash"`
	Category   string     `gorm:"column:category" json:"category"`
	IsDeleted  bool       `gorm:"column:is_deleted;default:false" json:"-"`
	DeleteTime *time.Time `gorm:"column:delete_time" json:"-"`
	CreateTime time.Time  `gorm:"column:create_time;default:now()" json:"createTime"`
	UpdateTime time.Time  `gorm:"column:update_time;default:now()" json:"updateTime"`
}

func (*Sound) TableName() string { return TableSound }

type Sprite struct {
	Id         int64      `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	Name       string     `gorm:"column:name;not null" json:"name"`
	BlobHash   string     `gorm:"column:blob_hash;not null" json:"blobHash"`
	Category   string     `gorm:"column:category" json:"category"`
	IsDeleted  bool       `gorm:"column:is_deleted;default:false" json:"-"`
	DeleteTime *time.Time `gorm:"column:delete_time" json:"-"`
	CreateTime time.Time  `gorm:"column:create_time;default:now()" json:"createTime"`
	UpdateTime time.Time  `gorm:"column:update_time;default:now()" json:"updateTime"`
}

func (*Sprite) TableName() string { return TableSprite }

type Pack struct {
	Id          int64     `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	Name        string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"column:description" json:"description"`
	CreateTime  time.Time `gorm:"column:create_time;default:now()" json:"createTime"`
	UpdateTime  time.Time `gorm:"column:update_time;default:now()" json:"updateTime"`
}

func (*Pack) TableName() string { return TablePack }

type Project struct {
	Id          int64     `gorm:"column:id;primaryKey;autoIncrement:true" json:"id"`
	Name        string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"column:description" json:"description"`
	CreateTime  time.Time `gorm:"column:create_time;default:now()" json:"createTime"`
	UpdateTime  time.Time `gorm:"column:update_time;default:now()" json:"updateTime"`
}

func (*Project) TableName() string { return TableProject }

// ModelTextureSet associates a texture set with a model version.
type ModelTextureSet struct {
	VersionId    int64     `gorm:"column:version_id;primaryKey" json:"versionId"`
	TextureSetId int64     `gorm:"column:texture_set_id;primaryKey" json:"textureSetId"`
	CreateTime   time.Time `gorm:"column:create_time;default:now()" json:"createTime"`
}

func (*ModelTextureSet) TableName() string { return TableModelTextureSet }

type PackMember struct {
	PackId     int64     `gorm:"column:pack_id;primaryKey" json:"packId"`
	MemberKind string    `gorm:"column:member_kind;primaryKey" json:"memberKind"`
	MemberId   int64     `gorm:"column:member_id;primaryKey" json:"memberId"`
	CreateTime time.Time `gorm:"column:create_time;default:now()" json:"createTime"`
}

func (*PackMember) TableName() string { return TablePackMember }

type ProjectMember struct {
	ProjectId  int64     `gorm:"column:project_id;primaryKey" json:"projectId"`
	MemberKind string    `gorm:"column:member_kind;primaryKey" json:"memberKind"`
	MemberId   int64     `gorm:"column:member_id;primaryKey" json:"memberId"`
	CreateTime time.Time `gorm:"column:create_time;default:now()" json:"createTime"`
}

func (*ProjectMember) TableName() string { return TableProjectMember }

// RecycleEntry is the uniform view over soft-deleted rows across kinds.
type RecycleEntry struct {
	Kind       string     `json:"kind"`
	Id         int64      `json:"id"`
	Name       string     `json:"name"`
	DeleteTime *time.Time `json:"deleteTime"`
}
