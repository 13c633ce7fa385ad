// Package discovery finds Go types carrying service metadata in a set of
// bundles and registers them as container definitions.
//
// # Pipeline
//
//  1. Locator walks each bundle for *.go files (tests, testdata and the
//     DefaultExcludes directories are skipped) and maps each file to the type
//     its name implies: mail/smtp_mailer.go → <namespace>/mail.SMTPMailer.
//  2. Loader parses the file's package and confirms the type exists. Files
//     that do not parse or declare no such type are skipped.
//  3. Extractor reads the //di: directives, falling back to @Service in the
//     doc comment.
//  4. Single-method variants are checked against the type's exported methods.
//  5. Services whose envs exclude the active environment are dropped.
//  6. The rest are stably sorted by priority and written to the Registry,
//     with "@id" and "!tagged name" argument strings turned into
//     container.Reference and container.TaggedIterator.
//
// # Directive syntax
//
//	//di:service id = "mailer", public = true, envs = ["prod"]
//	//di:service arguments = ["@logger", "!tagged mail.transport", "smtp://localhost"]
//	//di:service tags = [{name = "event.listener", attributes = {event = "boot"}}]
//	type SMTPMailer struct{ ... }
//
// # Legacy comment syntax
//
//	// SMTPMailer sends mail.
//	//
//	// @Service(id="mailer", public=true, arguments={"@logger"},
//	//     tags={@Tag("event.listener", {"event"="boot"})})
//	type SMTPMailer struct{ ... }
//
// # Usage
//
//	b := container.New()
//	s := discovery.NewScanner(discovery.WithLogger(logger))
//	if err := s.RegisterServices(discovery.BuilderRegistry(b), bs, "prod"); err != nil {
//	    log.Fatal(err)
//	}
package discovery
