// Package language normalizes language codes and maps them onto the forms
// each collaborator needs: BCP 47 tags for configuration, language-region
// locales for speech engines, upper-case codes for DeepLX and English display
// names for translation prompts.
package language
