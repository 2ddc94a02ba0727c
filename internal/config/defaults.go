package config

import (
	"path/filepath"
	"time"
)

const (
	DefaultMasterDir         = "./master"
	DefaultOutputDir         = "./output"
	DefaultFinalAppDir       = "./final_app"
	DefaultVersionSourcePath = "master/source"
	DefaultBuildDir          = "build"
	DefaultCacheDir          = ".docbinder/snapshots"
	DefaultCachePath         = ".docbinder/modcache.db"
	DefaultNATSSubject       = "docbinder.links.broken"
	DefaultConcurrency       = 4
	DefaultDebounce          = 300 * time.Millisecond
	DefaultPollInterval      = 5 * time.Minute
	DefaultGitURLTemplate    = "https://github.com/%s.git"
	DefaultGitHubAPI         = "https://api.github.com"
	DefaultPDFCommand        = "wkhtmltopdf"
)

// DefaultRendererCommand renders master/source into master/build.
var DefaultRendererCommand = []string{"hugo", "--source", ".", "--contentDir", "source", "--destination", DefaultBuildDir}

func (c *Config) applyDefaults() {
	if c.PublicScheme == "" {
		c.PublicScheme = "http"
	}
	if c.MasterDir == "" {
		c.MasterDir = DefaultMasterDir
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.FinalAppDir == "" {
		c.FinalAppDir = DefaultFinalAppDir
	}
	if c.VersionSourcePath == "" {
		c.VersionSourcePath = DefaultVersionSourcePath
	}
	if c.PDF != nil && c.PDF.Command == "" {
		c.PDF.Command = DefaultPDFCommand
	}
	if len(c.Renderer.Command) == 0 {
		c.Renderer.Command = append([]string(nil), DefaultRendererCommand...)
	}
	if c.Renderer.BuildDir == "" {
		c.Renderer.BuildDir = DefaultBuildDir
	}
	if c.Remote.Provider == "" {
		c.Remote.Provider = ProviderGitHub
	}
	if c.Remote.APIURL == "" {
		c.Remote.APIURL = DefaultGitHubAPI
	}
	if c.Remote.URLTemplate == "" {
		c.Remote.URLTemplate = DefaultGitURLTemplate
	}
	if c.Remote.CacheDir == "" {
		c.Remote.CacheDir = filepath.FromSlash(DefaultCacheDir)
	}
	if c.Remote.Concurrency <= 0 {
		c.Remote.Concurrency = DefaultConcurrency
	}
	if c.Cache.Path == "" {
		c.Cache.Path = filepath.FromSlash(DefaultCachePath)
	}
	if c.Notify.Subject == "" {
		c.Notify.Subject = DefaultNATSSubject
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = DefaultDebounce
	}
	if c.Watch.PollInterval <= 0 {
		c.Watch.PollInterval = DefaultPollInterval
	}
}
