// Package config loads docvec configuration from an optional YAML file and
// DOCVEC_* environment variables.
//
// Precedence, highest first: environment, YAML file, defaults. A .env file
// in the working directory is read into the environment before anything
// else. Environment keys map onto YAML paths by splitting at the first
// underscore after the prefix:
//
//	DOCVEC_DOCS_ROOT          -> docs.root
//	DOCVEC_EMBEDDING_API_KEY  -> embedding.api_key
//	DOCVEC_DOCS_INCLUDE=a,b   -> docs.include: [a, b]
//
// Provider credentials also fall back to OPENAI_API_KEY, JINA_API_KEY and
// GEMINI_API_KEY. Load validates the result; RequireCredential is checked
// separately by commands that call a provider. Both fail with
// types.ErrConfiguration.
package config
