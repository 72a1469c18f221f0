package install

//go:generate -command mockgen mockgen -package=install -self_package=github.com/holorpm/rpminstall/internal/install
//go:generate mockgen -destination=./database_mock.go github.com/holorpm/rpminstall/internal/install Database
//go:generate mockgen -destination=./archiveextractor_mock.go github.com/holorpm/rpminstall/internal/install ArchiveExtractor
//go:generate mockgen -destination=./scriptletrunner_mock.go github.com/holorpm/rpminstall/internal/install ScriptletRunner
