// Package models contains the GORM persistence models behind the manifest
// repositories. Domain types stay free of ORM tags; each model converts with
// ToDomain and a ...ModelFromDomain constructor.
package models
