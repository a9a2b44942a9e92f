package chain

import "strings"

// Pinned stack versions. The chain provisions one fixed version of each
// dependency; version negotiation is out of scope.
const (
	hadoopVersion = "3.3.6"
	hiveVersion   = "3.1.3"
	sparkVersion  = "3.5.1"
)

// Default returns the built-in dependency chain in install order: the Java
// runtime first, then Hadoop, then the two layers that depend on it. The
// ordering is a dependency requirement: later entries read environment
// state registered by earlier ones.
func Default(mirror, installRoot string) []Spec {
	mirror = strings.TrimRight(mirror, "/")
	return []Spec{
		{
			Name:           "java",
			EnvKey:         "JAVA_HOME",
			MinVersion:     "1.8",
			VersionCommand: []string{"javac", "-version"},
			Bootstrap:      "temurin-8-jdk",
		},
		{
			Name:        "hadoop",
			EnvKey:      "HADOOP_HOME",
			DownloadURL: mirror + "/hadoop/common/hadoop-" + hadoopVersion + "/hadoop-" + hadoopVersion + ".tar.gz",
			ArchiveKind: "tar",
			TopLevelDir: "hadoop-" + hadoopVersion,
			InstallRoot: installRoot,
		},
		{
			Name:        "hive",
			EnvKey:      "HIVE_HOME",
			DownloadURL: mirror + "/hive/hive-" + hiveVersion + "/apache-hive-" + hiveVersion + "-bin.tar.gz",
			ArchiveKind: "tar",
			TopLevelDir: "apache-hive-" + hiveVersion + "-bin",
			InstallRoot: installRoot,
		},
		{
			Name:        "spark",
			EnvKey:      "SPARK_HOME",
			DownloadURL: mirror + "/spark/spark-" + sparkVersion + "/spark-" + sparkVersion + "-bin-hadoop3.tgz",
			ArchiveKind: "tar",
			TopLevelDir: "spark-" + sparkVersion + "-bin-hadoop3",
			InstallRoot: installRoot,
		},
	}
}
